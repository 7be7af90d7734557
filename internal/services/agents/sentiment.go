package agents

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
	applogger "QuantPulse/pkg/logger"

	"github.com/go-resty/resty/v2"
)

const (
	minSentimentMultiplier = 0.9
	maxSentimentMultiplier = 1.1
)

type sentimentReply struct {
	News struct {
		SentimentDirection string   `json:"sentimentDirection"`
		Confidence         *float64 `json:"confidence"`
	} `json:"news"`
}

// SentimentAgent maps the news sentiment service onto a forecast multiplier in [0.9, 1.1].
type SentimentAgent struct {
	client *resty.Client
	weight float64
	logger *applogger.Logger
}

// NewSentimentAgent talks to baseURL. An empty baseURL keeps the agent neutral.
func NewSentimentAgent(baseURL string, timeout time.Duration, weight float64, logger *applogger.Logger) *SentimentAgent {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	var client *resty.Client
	if baseURL != "" {
		client = resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json")
	}
	return &SentimentAgent{client: client, weight: weight, logger: logger}
}

func (a *SentimentAgent) Kind() models.AgentKind { return models.AgentSentiment }

// Compute degrades to a neutral signal when the sentiment service is unreachable.
func (a *SentimentAgent) Compute(ctx context.Context, symbol string, _ float64) (models.Signal, error) {
	if a.client == nil {
		return a.Neutral(), nil
	}
	reply, err := a.fetch(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if a.logger != nil {
			a.logger.Debug("sentiment unavailable, using neutral", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return a.Neutral(), nil
	}
	return a.fromReply(reply), nil
}

// fetch lets resty decode the body; the content type is forced so a mislabelled reply is still parsed.
func (a *SentimentAgent) fetch(ctx context.Context, symbol string) (sentimentReply, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&sentimentReply{}).
		ForceContentType("application/json").
		Get("/ai-prediction/" + url.PathEscape(strings.ToUpper(symbol)))
	if err != nil {
		return sentimentReply{}, fmt.Errorf("sentiment request: %w", err)
	}
	if resp.IsError() {
		return sentimentReply{}, fmt.Errorf("sentiment status %d", resp.StatusCode())
	}
	reply, ok := resp.Result().(*sentimentReply)
	if !ok || reply == nil {
		return sentimentReply{}, fmt.Errorf("sentiment reply missing")
	}
	return *reply, nil
}

// fromReply converts the upstream direction and confidence into a signal.
func (a *SentimentAgent) fromReply(r sentimentReply) models.SentimentSignal {
	conf := 50.0
	if r.News.Confidence != nil && !math.IsNaN(*r.News.Confidence) {
		conf = math.Max(0, math.Min(*r.News.Confidence, 100))
	}

	var consensus, mult float64
	switch strings.ToUpper(strings.TrimSpace(r.News.SentimentDirection)) {
	case "UP":
		consensus = 0.5
		mult = 1 + 0.1*conf/100
	case "DOWN":
		consensus = -0.5
		mult = 1 - 0.1*conf/100
	default:
		consensus = 0
		mult = 1
	}
	mult = math.Max(minSentimentMultiplier, math.Min(maxSentimentMultiplier, mult))

	return models.SentimentSignal{
		SentimentMultiplier: mult,
		ConsensusScore:      consensus,
		SentimentLabel:      models.SentimentLabelFor(consensus),
		BullBearRatio:       0.5 + consensus*0.5,
		Confidence:          conf,
		Weight:              a.weight,
	}
}

// Neutral is the signal used when no sentiment is available.
func (a *SentimentAgent) Neutral() models.SentimentSignal {
	return models.SentimentSignal{
		SentimentMultiplier: 1,
		ConsensusScore:      0,
		SentimentLabel:      models.SentimentNeutral,
		BullBearRatio:       0.5,
		Confidence:          50,
		Weight:              a.weight,
	}
}

var _ domsvc.SignalSource = (*SentimentAgent)(nil)
