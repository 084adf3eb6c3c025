package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"crm-project/backend/mailer"
)

// fakeMailer and fakeAvatars record what the services hand them.

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

type fakeAvatars struct {
	uploads map[string][]byte
}

func (f *fakeAvatars) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", errors.New("empty upload")
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = b
	return "http://files.test/avatars/" + name, nil
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }
