package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type devSender struct {
	dir string
}

// NewDevSender returns a Sender that writes messages to disk instead of
// delivering them, for local development.
func NewDevSender(dir string) Sender {
	return &devSender{dir: dir}
}

func (d *devSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	name := fmt.Sprintf("%s_%s.html", time.Now().Format("2006_01_02_150405"), msg.Tag)
	body := fmt.Sprintf("<!-- to: %s | subject: %s -->\n%s", msg.SendTo, msg.Subject, msg.BodyHTML)
	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}
