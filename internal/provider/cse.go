package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/query"
	"github.com/sells-group/event-scout/internal/resilience"
	"github.com/sells-group/event-scout/pkg/cse"
)

const cseBaseScore = 0.45

// relaxAttempts is the maximum number of progressively relaxed parameter
// sets tried before giving up with an empty result.
const relaxAttempts = 3

// CSE adapts Google Programmable Search as the fallback provider. Rejected
// requests (400/403/429) are retried with progressively fewer parameters —
// locale hints dropped first, then the date restriction — and exhaustion
// yields an empty result set rather than an error.
type CSE struct {
	client cse.Client
	num    int
}

// NewCSE creates the fallback search adapter.
func NewCSE(client cse.Client, num int) *CSE {
	if num <= 0 {
		num = 10
	}
	return &CSE{client: client, num: num}
}

func (c *CSE) Name() string { return model.SourceCSE }

func (c *CSE) Search(ctx context.Context, q query.Query) ([]model.CandidateURL, error) {
	log := zap.L().With(zap.String("provider", c.Name()))

	attempts := c.relaxationLadder(q)
	var lastStatus int
	for i, cq := range attempts {
		resp, err := c.client.Search(ctx, cq)
		if err == nil {
			return c.toCandidates(resp), nil
		}

		var apiErr *cse.APIError
		if errors.As(err, &apiErr) && isRelaxable(apiErr.StatusCode) {
			lastStatus = apiErr.StatusCode
			log.Debug("relaxing query parameters",
				zap.Int("attempt", i+1),
				zap.Int("status", apiErr.StatusCode),
			)
			continue
		}

		// Network or server-side failure: surface for retry/breaker.
		return nil, &ProviderError{Provider: c.Name(), Cause: classifyCSE(err)}
	}

	log.Warn("all relaxation attempts rejected, returning empty result",
		zap.Int("attempts", len(attempts)),
		zap.Int("last_status", lastStatus),
		zap.String("query", q.Text),
	)
	return nil, nil
}

// relaxationLadder builds up to relaxAttempts parameter sets, strictest
// first.
func (c *CSE) relaxationLadder(q query.Query) []cse.Query {
	full := cse.Query{Q: q.Text, Num: c.num}
	if q.Country != "" && q.Country != model.CountryAll {
		full.GL = strings.ToLower(q.Country)
		full.CR = "country" + strings.ToUpper(q.Country)
	}
	if !q.To.IsZero() {
		full.DateRestrict = dateRestrict(q.To)
	}

	noLocale := full
	noLocale.GL = ""
	noLocale.CR = ""

	bare := cse.Query{Q: q.Text, Num: c.num}

	ladder := []cse.Query{full}
	if noLocale != full {
		ladder = append(ladder, noLocale)
	}
	if bare != noLocale {
		ladder = append(ladder, bare)
	}
	if len(ladder) > relaxAttempts {
		ladder = ladder[:relaxAttempts]
	}
	return ladder
}

func (c *CSE) toCandidates(resp *cse.Response) []model.CandidateURL {
	out := make([]model.CandidateURL, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		out = append(out, model.CandidateURL{
			URL:    item.Link,
			Score:  cseBaseScore,
			Reason: item.Title,
			Source: model.SourceCSE,
		})
	}
	return out
}

// dateRestrict approximates the window end as a months-back restriction.
func dateRestrict(to time.Time) string {
	months := int(time.Until(to).Hours()/(24*30)) + 1
	if months < 1 {
		months = 1
	}
	if months > 12 {
		months = 12
	}
	return fmt.Sprintf("m%d", months)
}

func isRelaxable(status int) bool {
	return status == 400 || status == 403 || status == 429
}

func classifyCSE(err error) error {
	var apiErr *cse.APIError
	if errors.As(err, &apiErr) && resilience.RetryableStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
