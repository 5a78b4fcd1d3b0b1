package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xPuncker/evm-indexer/pkg/types"
)

type NotificationType string

const (
	TypeChain    NotificationType = "CHAIN"
	TypeContract NotificationType = "CONTRACT"
	TypeJob      NotificationType = "JOB"
	TypeAPI      NotificationType = "API"
)

// NotificationService formats events for Slack. A nil service, or one
// without a Slack client, drops every message.
type NotificationService struct {
	slackService *SlackService
}

func NewNotificationService(slackService *SlackService) *NotificationService {
	return &NotificationService{
		slackService: slackService,
	}
}

func (s *NotificationService) Enabled() bool {
	return s != nil && s.slackService != nil
}

func statusStyle(status string) (color, icon string) {
	switch status {
	case "success":
		return "good", "✅"
	case "failed", "error":
		return "danger", "❌"
	case "started":
		return "warning", "🚀"
	default:
		return "#808080", "ℹ️"
	}
}

func (s *NotificationService) formatJobNotification(jobName string, status string, duration time.Duration, details string) *SlackMessage {
	color, icon := statusStyle(status)

	fields := []Field{
		{
			Title: "Job Name",
			Value: jobName,
			Short: true,
		},
		{
			Title: "Status",
			Value: status,
			Short: true,
		},
	}

	if duration > 0 {
		fields = append(fields, Field{
			Title: "Duration",
			Value: duration.String(),
			Short: true,
		})
	}

	if details != "" {
		fields = append(fields, Field{
			Title: "Details",
			Value: details,
			Short: false,
		})
	}

	return &SlackMessage{
		Text: fmt.Sprintf("%s Job Status Update", icon),
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Ts:     time.Now().Unix(),
			},
		},
	}
}

func (s *NotificationService) formatAPINotification(endpoint string, status string, details string) *SlackMessage {
	color, icon := statusStyle(status)

	fields := []Field{
		{
			Title: "Endpoint",
			Value: endpoint,
			Short: true,
		},
		{
			Title: "Status",
			Value: status,
			Short: true,
		},
	}

	if details != "" {
		fields = append(fields, Field{
			Title: "Details",
			Value: details,
			Short: false,
		})
	}

	return &SlackMessage{
		Text: fmt.Sprintf("%s API Event", icon),
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Ts:     time.Now().Unix(),
			},
		},
	}
}

func (s *NotificationService) formatStartupSummary(chains []*types.ChainStatus, contracts []*types.ContractStatus) *SlackMessage {
	color := "good"

	var chainLines []string
	for _, c := range chains {
		line := fmt.Sprintf("✅ %s (id %d) at block %d", c.Name, c.ConfiguredID, c.HeadBlock)
		if !c.Healthy {
			color = "danger"
			line = fmt.Sprintf("❌ %s (id %d): %s", c.Name, c.ConfiguredID, c.Error)
		}
		chainLines = append(chainLines, line)
	}

	var contractLines []string
	for _, c := range contracts {
		var line string
		switch {
		case c.Error != "":
			color = "danger"
			line = fmt.Sprintf("❌ %s: %s", c.Name, c.Error)
		case !c.HasCode:
			color = "danger"
			line = fmt.Sprintf("❌ %s: no code at %s", c.Name, c.Address)
		case !c.StartBlockReached:
			if color == "good" {
				color = "warning"
			}
			line = fmt.Sprintf("⏳ %s: %d blocks until start block %d", c.Name, c.BlocksToStart, c.StartBlock)
		default:
			line = fmt.Sprintf("✅ %s on %s from block %d", c.Name, c.Chain, c.StartBlock)
		}
		contractLines = append(contractLines, line)
	}

	fields := []Field{
		{
			Title: "Chains",
			Value: strings.Join(chainLines, "\n"),
			Short: false,
		},
	}
	if len(contractLines) > 0 {
		fields = append(fields, Field{
			Title: "Contracts",
			Value: strings.Join(contractLines, "\n"),
			Short: false,
		})
	}

	return &SlackMessage{
		Text: "🟢 Indexer started",
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Ts:     time.Now().Unix(),
			},
		},
	}
}

func (s *NotificationService) SendJobNotification(jobName string, status string, duration time.Duration, details string) error {
	if !s.Enabled() {
		return nil
	}
	return s.slackService.SendSlackMessage(s.formatJobNotification(jobName, status, duration, details))
}

func (s *NotificationService) SendAPINotification(endpoint string, status string, details string) error {
	if !s.Enabled() {
		return nil
	}
	return s.slackService.SendSlackMessage(s.formatAPINotification(endpoint, status, details))
}

func (s *NotificationService) SendChainAlert(status *types.ChainStatus) error {
	if !s.Enabled() {
		return nil
	}
	return s.slackService.SendChainAlert(status)
}

func (s *NotificationService) SendContractAlert(status *types.ContractStatus) error {
	if !s.Enabled() {
		return nil
	}
	return s.slackService.SendContractAlert(status)
}

func (s *NotificationService) SendStartupSummary(chains []*types.ChainStatus, contracts []*types.ContractStatus) error {
	if !s.Enabled() {
		return nil
	}
	return s.slackService.SendSlackMessage(s.formatStartupSummary(chains, contracts))
}
