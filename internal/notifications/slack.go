package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	indexer "github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/0xPuncker/evm-indexer/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type SlackService struct {
	logger     *logrus.Logger
	webhookURL string
	client     *http.Client
}

type SlackMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer,omitempty"`
	Ts     int64   `json:"ts,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

const (
	colorGood    = "#36a64f"
	colorWarning = "#ffcc00"
	colorDanger  = "#ff0000"
)

func NewSlackService(logger *logrus.Logger) (*SlackService, error) {
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("SLACK_WEBHOOK_URL environment variable is not set")
	}
	return NewSlackServiceWithURL(logger, webhookURL), nil
}

func NewSlackServiceWithURL(logger *logrus.Logger, webhookURL string) *SlackService {
	return &SlackService{
		logger:     logger,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendChainAlert reports a chain endpoint going down or coming back.
func (s *SlackService) SendChainAlert(status *types.ChainStatus) error {
	title := cases.Title(language.English).String(status.Name)

	color := colorGood
	mainMessage := fmt.Sprintf("✅ %s endpoint is healthy", title)
	if !status.Healthy {
		color = colorDanger
		mainMessage = fmt.Sprintf("🚨 %s endpoint is unhealthy", title)
	}

	fields := []Field{
		{
			Title: "Chain ID",
			Value: fmt.Sprintf("%d", status.ConfiguredID),
			Short: true,
		},
		{
			Title: "Latency",
			Value: status.Latency.Round(time.Millisecond).String(),
			Short: true,
		},
	}

	if status.Healthy {
		fields = append(fields, Field{
			Title: "Head Block",
			Value: fmt.Sprintf("%d", status.HeadBlock),
			Short: true,
		})
	}
	if status.RemoteID != 0 && status.RemoteID != status.ConfiguredID {
		fields = append(fields, Field{
			Title: "Remote Chain ID",
			Value: fmt.Sprintf("%d", status.RemoteID),
			Short: true,
		})
	}

	message := SlackMessage{
		Text: mainMessage,
		Attachments: []Attachment{
			{
				Color:  color,
				Text:   status.Error,
				Fields: fields,
				Footer: fmt.Sprintf("Chain: %s | Checked: %s",
					status.Name,
					status.CheckedAt.Format(time.RFC1123)),
				Ts: time.Now().Unix(),
			},
		},
	}

	return s.SendSlackMessage(&message)
}

// SendContractAlert reports a contract that cannot be indexed yet.
func (s *SlackService) SendContractAlert(status *types.ContractStatus) error {
	color := colorWarning
	if status.Error != "" || !status.HasCode {
		color = colorDanger
	}

	fields := []Field{
		{
			Title: "Chain",
			Value: status.Chain,
			Short: true,
		},
		{
			Title: "Address",
			Value: status.Address,
			Short: true,
		},
		{
			Title: "Code Deployed",
			Value: fmt.Sprintf("%t", status.HasCode),
			Short: true,
		},
	}

	if status.HeadBlock > 0 {
		fields = append(fields, Field{
			Title: "Start Block",
			Value: utils.FormatBlockLag(status.HeadBlock, status.StartBlock),
			Short: false,
		})
	}

	message := SlackMessage{
		Text: fmt.Sprintf("⚠️ Contract %s needs attention", status.Name),
		Attachments: []Attachment{
			{
				Color:  color,
				Text:   status.Error,
				Fields: fields,
				Footer: fmt.Sprintf("Contract: %s | Checked: %s",
					status.Name,
					status.CheckedAt.Format(time.RFC1123)),
				Ts: time.Now().Unix(),
			},
		},
	}

	return s.SendSlackMessage(&message)
}

func (s *SlackService) SendSlackMessage(message *SlackMessage) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	jsonMessage, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewBuffer(jsonMessage))
	if err != nil {
		return fmt.Errorf("error sending slack message: %w", indexer.RedactError(s.webhookURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned non-200 status code: %d", resp.StatusCode)
	}

	s.logger.Debug("Successfully sent message to Slack")
	return nil
}
