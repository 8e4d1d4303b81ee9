package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

var (
	auditResourceID string
	auditLimit      int
	auditSince      time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Record audit events and inspect security alerts",
}

var auditRecordCmd = &cobra.Command{
	Use:   "record [actor] [action] [resource-type]",
	Short: "Record an audit event and run anomaly detection",
	Args:  cobra.ExactArgs(3),
	RunE:  runAuditRecord,
}

var auditAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent security alerts",
	RunE:  runAuditAlerts,
}

var auditLogCmd = &cobra.Command{
	Use:   "log [actor]",
	Short: "Show an actor's recent audit trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

func init() {
	auditRecordCmd.Flags().StringVar(&auditResourceID, "resource", "", "resource id the action touched")
	auditAlertsCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "maximum number of alerts")
	auditLogCmd.Flags().DurationVar(&auditSince, "since", 24*time.Hour, "how far back to look")
	auditCmd.AddCommand(auditRecordCmd)
	auditCmd.AddCommand(auditAlertsCmd)
	auditCmd.AddCommand(auditLogCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	event := domain.AuditEvent{
		ID:           uuid.New().String(),
		Actor:        args[0],
		Action:       args[1],
		ResourceType: args[2],
		ResourceID:   auditResourceID,
		Timestamp:    time.Now().UTC(),
	}

	alerts, err := a.security.Detect(ctx, event)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	if len(alerts) == 0 {
		cmd.Println("Event recorded. No anomalies detected.")
		return nil
	}

	cmd.Printf("Event recorded. %d anomaly rule(s) fired:\n", len(alerts))
	for _, alert := range alerts {
		if err := a.store.AlertStore().Save(ctx, &alert); err != nil {
			return fmt.Errorf("saving alert: %w", err)
		}
		cmd.Printf("  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Reason)
	}
	return nil
}

func runAuditAlerts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.store.AlertStore().List(ctx, auditLimit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		cmd.Println("No alerts.")
		return nil
	}

	for _, alert := range alerts {
		cmd.Printf("  [%s] %-10s %-22s actor=%s  %s\n",
			alert.CreatedAt.Format("2006-01-02 15:04"), alert.Severity, alert.Type,
			alert.Actor, alert.Reason)
	}
	return nil
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.store.AuditStore().EventsByActor(ctx, args[0], time.Now().UTC().Add(-auditSince))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		cmd.Println("No events in window.")
		return nil
	}

	for _, e := range events {
		target := e.ResourceType
		if e.ResourceID != "" {
			target += "/" + e.ResourceID
		}
		cmd.Printf("  [%s] %-14s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, target)
	}
	return nil
}
