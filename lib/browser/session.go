package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"
)

// Session state is persisted as a JSON cookie blob at a fixed path so a
// later run can resume an authenticated context without logging in again.
// Callers must only save after authentication has been independently
// verified; a blob captured from a login redirect is worse than none.

func (r *Rod) SaveSession(path string) error {
	cookies, err := r.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	blob, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

// RestoreSession loads a previously saved cookie blob. A missing file is
// not an error; it just means the caller has to authenticate from scratch.
func (r *Rod) RestoreSession(path string) (bool, error) {
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(blob, &cookies); err != nil {
		return false, fmt.Errorf("parse session state %s: %w", path, err)
	}
	if err := r.browser.SetCookies(proto.CookiesToParams(cookies)); err != nil {
		return false, fmt.Errorf("restore cookies: %w", err)
	}
	return true, nil
}
