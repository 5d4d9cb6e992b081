package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskmint/internal/models"
	"taskmint/internal/pkg/mailer"
)

const reminderBatchSize = 200

// planReminders derives reminder rows for newly materialized PPM instances
// from the definition's escalation matrix: one reminder per (instance,
// matrix entry), firing at plannedStart minus the entry's cadence.
// Reminder planning is adjacent to generation; its failures are logged and
// never fail the definition's outcome.
func (e *Engine) planReminders(def *models.JobDefinition, created []models.TaskInstance) {
	if len(created) == 0 {
		return
	}

	entries, err := e.repos.Reminder.MatrixFor(def.ID)
	if err != nil {
		e.logger.Error("Escalation matrix lookup failed",
			zap.Uint("definition_id", def.ID), zap.Error(err))
		return
	}
	if len(entries) == 0 {
		// Fall back to the seeded default cadence set.
		entries, err = e.repos.Reminder.MatrixFor(models.DefaultMatrixDefinitionID)
		if err != nil {
			e.logger.Error("Escalation matrix lookup failed",
				zap.Uint("definition_id", def.ID), zap.Error(err))
			return
		}
	}
	if len(entries) == 0 {
		return
	}

	planned := 0
	for _, inst := range created {
		for i := range entries {
			entry := &entries[i]
			recipients := entry.NotifyEmails
			if recipients == "" {
				// Default-set rows carry no addresses of their own.
				recipients = e.cfg.Mail.AlertTo
			}
			reminder := &models.Reminder{
				DefinitionID:  def.ID,
				InstanceID:    inst.ID,
				MatrixEntryID: entry.ID,
				FireAt:        inst.PlannedStart.Add(-entry.Cadence()),
				Status:        models.ReminderPending,
				Recipients:    recipients,
			}
			createdNow, err := e.repos.Reminder.GetOrCreate(reminder)
			if err != nil {
				e.logger.Error("Reminder planning failed",
					zap.Uint("definition_id", def.ID),
					zap.Uint("instance_id", inst.ID),
					zap.Error(err))
				continue
			}
			if createdNow {
				planned++
			}
		}
	}
	if planned > 0 {
		e.logger.Info("Reminders planned",
			zap.Uint("definition_id", def.ID), zap.Int("count", planned))
	}
}

// SweepReminders delivers due reminders through the mail gateway. Delivery
// failures are recorded on the row and retried by the next sweep, never
// inline.
func (e *Engine) SweepReminders(ctx context.Context) (sent, failed int, err error) {
	due, err := e.repos.Reminder.FindDue(e.now().UTC(), reminderBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list due reminders: %w", err)
	}

	for i := range due {
		reminder := &due[i]

		sendErr := e.deliverReminder(ctx, reminder)
		now := e.now().UTC()
		if sendErr != nil {
			failed++
			e.logger.Warn("Reminder delivery failed",
				zap.Uint("reminder_id", reminder.ID),
				zap.Uint("instance_id", reminder.InstanceID),
				zap.Error(sendErr))
			if markErr := e.repos.Reminder.MarkSent(reminder.ID, models.ReminderFailed, sendErr.Error(), now); markErr != nil {
				e.logger.Error("Reminder status update failed",
					zap.Uint("reminder_id", reminder.ID), zap.Error(markErr))
			}
			continue
		}

		sent++
		if markErr := e.repos.Reminder.MarkSent(reminder.ID, models.ReminderSuccess, "", now); markErr != nil {
			e.logger.Error("Reminder status update failed",
				zap.Uint("reminder_id", reminder.ID), zap.Error(markErr))
		}
	}
	return sent, failed, nil
}

func (e *Engine) deliverReminder(ctx context.Context, reminder *models.Reminder) error {
	to := mailer.SplitRecipients(reminder.Recipients)
	if len(to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	if e.mail == nil {
		return fmt.Errorf("mail gateway not configured")
	}

	subject := fmt.Sprintf("Upcoming maintenance task #%d", reminder.InstanceID)
	body := fmt.Sprintf(
		"Task instance #%d (definition #%d) is coming up. This reminder was scheduled for %s.",
		reminder.InstanceID, reminder.DefinitionID, reminder.FireAt.UTC().Format(time.RFC1123))
	return e.mail.Send(ctx, to, subject, body)
}
