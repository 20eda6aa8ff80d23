package service

import (
	"bytes"
	"fmt"
	"net/smtp"
	"os"
	"time"

	"chatrelay/model"
	"chatrelay/platform"

	"github.com/jordan-wright/email"
	"github.com/yuin/goldmark"
	"gorm.io/gorm"
)

// DigestService mails a daily activity summary: message counts per
// conversation over the last 24 hours, rendered from markdown to HTML.
// Scheduled from main via cron; does nothing when DIGEST_TO is unset.
type DigestService struct {
	db *gorm.DB
}

func NewDigestService(db *gorm.DB) *DigestService {
	return &DigestService{db: db}
}

type digestRow struct {
	ConversationID uint
	Kind           model.ConversationKind
	Name           string
	Count          int64
}

// BuildReport returns the digest as markdown.
func (s *DigestService) BuildReport(since time.Time) (string, error) {
	var rows []digestRow
	err := s.db.Model(&model.Message{}).
		Select("messages.conversation_id, conversations.kind, conversations.name, COUNT(messages.id) AS count").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("messages.sent_at >= ?", since).
		Group("messages.conversation_id, conversations.kind, conversations.name").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "# Chat activity since %s\n\n", since.Format("2006-01-02 15:04"))
	if len(rows) == 0 {
		b.WriteString("No messages in this period.\n")
		return b.String(), nil
	}
	for _, row := range rows {
		name := row.Name
		if name == "" {
			name = fmt.Sprintf("private conversation %d", row.ConversationID)
		}
		fmt.Fprintf(&b, "- **%s** (%s): %d messages\n", name, row.Kind, row.Count)
	}
	return b.String(), nil
}

// Run builds, renders and mails the digest for the past day.
func (s *DigestService) Run() error {
	to := os.Getenv("DIGEST_TO")
	if to == "" {
		return nil
	}

	report, err := s.BuildReport(time.Now().Add(-24 * time.Hour))
	if err != nil {
		platform.Logger.Warnf("digest: build report: %v", err)
		return err
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(report), &html); err != nil {
		platform.Logger.Warnf("digest: render report: %v", err)
		return err
	}

	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")

	e := email.NewEmail()
	e.From = os.Getenv("SMTP_FROM")
	e.To = []string{to}
	e.Subject = "Daily chat activity digest"
	e.Text = []byte(report)
	e.HTML = html.Bytes()

	if err := e.Send(host+":"+port, smtp.PlainAuth("", user, password, host)); err != nil {
		platform.Logger.Warnf("digest: send mail: %v", err)
		return err
	}
	platform.Logger.Infof("digest: sent to %s", to)
	return nil
}
