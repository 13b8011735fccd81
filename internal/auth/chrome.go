package auth

import (
	"context"

	"github.com/xkilldash9x/dpsauth/internal/browser"
)

// ChromeOpener opens sessions through a browser.Controller.
type ChromeOpener struct {
	Controller *browser.Controller
}

// Open implements Opener.
func (o ChromeOpener) Open(ctx context.Context, url string) (Session, error) {
	s, err := o.Controller.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return s, nil
}
