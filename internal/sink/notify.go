package sink

import (
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/MrWong99/wordgate/pkg/game"
)

var _ game.Sink = (*Notifier)(nil)

// Notifier raises desktop notifications for popups worth interrupting the
// player for: answer results and the end of the session. Failures to notify
// are logged and otherwise ignored.
type Notifier struct {
	title  string
	notify func(title, message, icon string) error
	alert  func(title, message, icon string) error
}

// NewNotifier returns a notifier whose notifications carry title.
func NewNotifier(title string) *Notifier {
	return &Notifier{
		title:  title,
		notify: beeep.Notify,
		alert:  beeep.Alert,
	}
}

func (n *Notifier) WordChanged(string) {}
func (n *Notifier) Progress(float64)   {}
func (n *Notifier) GatePassed(int)     {}

// Popup notifies for success and error popups. Info popups are skipped.
func (n *Notifier) Popup(text string, kind game.PopupKind) {
	if kind == game.PopupInfo {
		return
	}
	if err := n.notify(n.title, text, ""); err != nil {
		slog.Debug("sink: desktop notification failed", "err", err)
	}
}

// SessionFinished raises an alert with sound.
func (n *Notifier) SessionFinished() {
	if err := n.alert(n.title, "All gates passed", ""); err != nil {
		slog.Debug("sink: desktop alert failed", "err", err)
	}
}
