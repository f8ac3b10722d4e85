// Package emailsvc holds the email backends.
package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
)

// Backends
const (
	BackendConsole  = "console"
	BackendSendgrid = "sendgrid"
	BackendSMTP     = "smtp"
)

// New returns the email service selected by conf.Email.Backend.
func New(conf *core.Config, tmpls *core.EmailTemplates, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case BackendConsole, "":
		return NewConsoleService(conf, tmpls, logger), nil
	case BackendSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, errors.New("sendgrid email backend requires an API key")
		}
		return NewSendgridService(conf, tmpls, logger), nil
	case BackendSMTP:
		if conf.Email.SMTPHost == "" {
			return nil, errors.New("smtp email backend requires a host")
		}
		return NewSMTPService(conf, tmpls, logger), nil
	default:
		return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
	}
}
