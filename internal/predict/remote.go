package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Remote calls an external model service over HTTP. The service is expected
// to answer GET {base}/predict?symbol=...&timeframe=... with a Prediction
// JSON body.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote creates a remote predictor client.
func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Remote) Predict(ctx context.Context, symbol, timeframe string) (Prediction, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/predict?"+q.Encode(), nil)
	if err != nil {
		return Prediction{}, fmt.Errorf("build predict request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, fmt.Errorf("read predict response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("predict service returned %d: %s", resp.StatusCode, string(body))
	}

	var p Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return Prediction{}, fmt.Errorf("decode predict response: %w", err)
	}
	if p.Symbol == "" {
		p.Symbol = symbol
	}
	if p.Timeframe == "" {
		p.Timeframe = timeframe
	}
	return p, nil
}
