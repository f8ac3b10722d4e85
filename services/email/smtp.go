package emailsvc

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/mail"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/trezcool/educonnect/core"
)

// sender is implemented by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	sender     sender
	from       mail.Address
	subjPrefix string
	tmpls      *core.EmailTemplates
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, tmpls *core.EmailTemplates, logger core.Logger) core.EmailService {
	dialer := gomail.NewDialer(conf.Email.SMTPHost, conf.Email.SMTPPort, conf.Email.SMTPUser, conf.Email.SMTPPassword)
	dialer.TLSConfig = &tls.Config{
		ServerName: conf.Email.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	return &smtpService{
		sender:     dialer,
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		tmpls:      tmpls,
		logger:     logger,
	}
}

func (svc *smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := svc.sendMessage(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}()
	}
}

func (svc *smtpService) sendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.tmpls); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return nil
	}
	m, err := svc.prepare(*msg)
	if err != nil {
		return err
	}
	return errors.Wrap(svc.sender.DialAndSend(m), "dialing SMTP server")
}

func (svc *smtpService) prepare(msg core.EmailMessage) (*gomail.Message, error) {
	m := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	m.SetAddressHeader("From", svc.from.Address, svc.from.Name)
	m.SetHeader("To", formatAddresses(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", formatAddresses(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", formatAddresses(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}

	for _, at := range msg.Attachments {
		content, err := base64.StdEncoding.DecodeString(at.Content.String())
		if err != nil {
			return nil, errors.Wrapf(err, "decoding attachment %s", at.Filename)
		}
		m.Attach(at.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {at.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
		)
	}
	return m, nil
}

func formatAddresses(m *gomail.Message, addrs []mail.Address) []string {
	res := make([]string, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, m.FormatAddress(a.Address, a.Name))
	}
	return res
}
