package action

import "context"

const NoopID = "none"

// Noop is planned when the user's words need no action. It does not call
// the model.
type Noop struct {
	Descriptor
}

func NewNoop() *Noop {
	return &Noop{Descriptor{
		id:          NoopID,
		description: "This action does nothing and is used when no specific action is required.",
		prompt:      "This action does nothing and is used when no specific action is required.",
	}}
}

func (n *Noop) Execute(ctx context.Context, c *Context) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	c.Log.Debug().Str("action", n.id).Msg("nothing to do")
	return nil
}
