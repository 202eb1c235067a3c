package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rotinas-pei/backend/core"
)

const sendTimeout = 15 * time.Second

// sendFunc posts one prepared mail. A sendgrid.Client is not safe for concurrent sends,
// so each call gets its own.
type sendFunc func(ctx context.Context, key string, m *sgmail.SGMailV3) (*rest.Response, error)

func sendgridSend(ctx context.Context, key string, m *sgmail.SGMailV3) (*rest.Response, error) {
	return sendgrid.NewSendClient(key).SendWithContext(ctx, m)
}

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	env        string
	sandbox    bool
	logger     core.Logger
	send       sendFunc
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := fromAddress(conf)
	return &sendgridService{
		key:        conf.SendgridAPIKey,
		from:       sgEmail(from),
		subjPrefix: "[" + conf.AppName + "] ",
		env:        conf.Env,
		sandbox:    conf.TestMode,
		logger:     logger,
		send:       sendgridSend,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc *sendgridService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("%+v", errors.Wrap(err, "rendering email")), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := svc.deliver(ctx, *msg); err != nil {
		svc.logger.Error(err.Error(), err, map[string]interface{}{"subject": msg.Subject, "template": msg.TemplateName})
	}
}

func (svc *sendgridService) deliver(ctx context.Context, msg core.EmailMessage) error {
	res, err := svc.send(ctx, svc.key, svc.prepare(msg))
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= 400 {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))

	// categories group the sendgrid stats per notification kind
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}
	m.SetCustomArg("env", svc.env)

	if svc.sandbox {
		m.SetMailSettings(sgmail.NewMailSettings().SetSandboxMode(sgmail.NewSetting(true)))
	}
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
