package prismlate

import "context"

// Gateway translates a single text from one language to another.
// Implementations must tolerate HTML in Text when Request.HTML is set and
// keep its tags intact.
type Gateway interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// Request contains the parameters for a translation request.
type Request struct {
	Text       string
	SourceLang string // Short tag or "auto"
	TargetLang string
	Context    string // User-provided context for the whole document
	FieldHint  string // Label of the field being translated, if any
	HTML       bool   // Text is an HTML fragment
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) (string, error)

// Translate calls f.
func (f GatewayFunc) Translate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
