package rtm

import "context"

// Open performs the handshake and prepares a session for it.
func Open(ctx context.Context, credential string, factory Factory, opts ...Option) (*Session, error) {
	endpoint, err := Connect(ctx, credential, opts...)
	if err != nil {
		return nil, err
	}

	return NewSession(credential, endpoint, factory, opts...)
}

// RunSession performs the handshake, then runs the session until it ends.
// Handshake errors are returned before any socket is opened.
func RunSession(ctx context.Context, credential string, factory Factory, opts ...Option) error {
	session, err := Open(ctx, credential, factory, opts...)
	if err != nil {
		return err
	}

	return session.Run(ctx)
}
