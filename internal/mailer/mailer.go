package mailer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
)

// Message is one outbound finalize notification.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Production deployments plug in an SMTP or
// provider-backed implementation; LogSender is the default.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes the message to the log instead of delivering it. It is
// the stand-in transport for local and test environments.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the logging transport.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("finalize notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

type pulseGetter interface {
	GetByID(ctx context.Context, id string) (*models.Pulse, error)
}

type recipientLister interface {
	ListWithEmail(ctx context.Context, pulseID string) ([]models.Participant, error)
}

type notificationRecorder interface {
	RecordNotification(ok bool)
}

// supported are the locales the notification body can be rendered in.
// Unknown locales fall back to English through the matcher.
var supported = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

type layoutSet struct {
	dateTime string
	date     string
	subject  string
	intro    string
}

var layouts = map[language.Tag]layoutSet{
	language.English: {
		dateTime: "Mon, Jan 2 2006 at 15:04",
		date:     "Mon, Jan 2 2006",
		subject:  "Confirmed: %s",
		intro:    "The organizer confirmed the following time for %q:",
	},
	language.German: {
		dateTime: "Mon, 02.01.2006 um 15:04",
		date:     "Mon, 02.01.2006",
		subject:  "Bestätigt: %s",
		intro:    "Die folgende Zeit wurde für %q bestätigt:",
	},
	language.French: {
		dateTime: "Mon 02/01/2006 à 15:04",
		date:     "Mon 02/01/2006",
		subject:  "Confirmé : %s",
		intro:    "L'horaire suivant a été confirmé pour %q :",
	},
	language.Spanish: {
		dateTime: "Mon 02/01/2006 a las 15:04",
		date:     "Mon 02/01/2006",
		subject:  "Confirmado: %s",
		intro:    "Se confirmó el siguiente horario para %q:",
	},
}

// Mailer composes and dispatches the finalize notification to every
// participant that left an email address. Delivery runs after the commit
// and never affects it.
type Mailer struct {
	pulses       pulseGetter
	participants recipientLister
	sender       Sender
	metrics      notificationRecorder
	from         string
	locale       language.Tag
	logger       *zap.Logger
}

// New constructs a Mailer. locale is matched against the supported
// notification locales, unknown values render as English.
func New(pulses pulseGetter, participants recipientLister, sender Sender, metrics notificationRecorder, from, locale string, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	_, idx := language.MatchStrings(matcher, locale)
	tag := supported[idx]
	return &Mailer{
		pulses:       pulses,
		participants: participants,
		sender:       sender,
		metrics:      metrics,
		from:         from,
		locale:       tag,
		logger:       logger,
	}
}

// Send notifies every recipient of the pulse's confirmed selection. One
// failed delivery does not stop the rest; the combined error is returned
// so the dispatcher can retry.
func (m *Mailer) Send(ctx context.Context, pulseID string) error {
	pulse, err := m.pulses.GetByID(ctx, pulseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "pulse not found or invalid link")
		}
		return err
	}
	if pulse.Status != models.StatusConfirmed || len(pulse.FinalizedSelection) == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "pulse is not confirmed yet")
	}

	recipients, err := m.participants.ListWithEmail(ctx, pulseID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		m.logger.Debug("no notification recipients", zap.String("pulse_id", pulseID))
		return nil
	}

	var sendErrs []error
	for _, recipient := range recipients {
		msg := m.compose(pulse, recipient)
		if err := m.sender.Send(ctx, msg); err != nil {
			m.logger.Warn("notification delivery failed",
				zap.String("pulse_id", pulseID),
				zap.String("to", msg.To),
				zap.Error(err),
			)
			if m.metrics != nil {
				m.metrics.RecordNotification(false)
			}
			sendErrs = append(sendErrs, err)
			continue
		}
		if m.metrics != nil {
			m.metrics.RecordNotification(true)
		}
	}
	return errors.Join(sendErrs...)
}

func (m *Mailer) compose(pulse *models.Pulse, recipient models.Participant) Message {
	set := layouts[m.locale]

	title := pulse.Title
	if title == "" {
		title = "your pulse"
	}

	loc := recipientLocation(recipient, pulse)
	bullets := make([]string, 0, len(pulse.FinalizedSelection))
	for _, iv := range pulse.FinalizedSelection {
		bullets = append(bullets, "  - "+formatInterval(iv, pulse.Mode, loc, set))
	}

	body := fmt.Sprintf("Hi %s,\n\n%s\n\n%s\n",
		recipient.Name,
		fmt.Sprintf(set.intro, title),
		strings.Join(bullets, "\n"),
	)
	return Message{
		From:    m.from,
		To:      *recipient.Email,
		Subject: fmt.Sprintf(set.subject, title),
		Body:    body,
	}
}

// formatInterval renders one confirmed interval in the recipient's
// timezone. Date pulses show the day only, time pulses a start/end range.
func formatInterval(iv slot.Interval, mode slot.Mode, loc *time.Location, set layoutSet) string {
	start := iv.Start.In(loc)
	if mode == slot.ModeDates {
		return start.Format(set.date)
	}
	return fmt.Sprintf("%s - %s", start.Format(set.dateTime), iv.End.In(loc).Format("15:04"))
}

func recipientLocation(recipient models.Participant, pulse *models.Pulse) *time.Location {
	if recipient.Timezone != "" {
		if loc, err := time.LoadLocation(recipient.Timezone); err == nil {
			return loc
		}
	}
	return pulse.Location()
}
