package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"TradeSentry/internal/model"
)

// EastmoneyFetcher pulls daily klines from the Eastmoney push2his endpoint.
// The API answers with a JSONP wrapper that has to be stripped before the
// JSON payload can be decoded.
type EastmoneyFetcher struct {
	BaseURL string
	Client  *http.Client
}

const eastmoneyBaseURL = "https://push2his.eastmoney.com"

// NewEastmoneyFetcher creates a fetcher with optional proxy support.
func NewEastmoneyFetcher(proxyURL string, timeout time.Duration) *EastmoneyFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EastmoneyFetcher{
		BaseURL: eastmoneyBaseURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

var jsonpRe = regexp.MustCompile(`jQuery\d+_\d+\((.*)\);?`)

type emPayload struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchDailyBars returns up to limit daily bars, oldest first. While the
// session is open the last bar mutates with the tape.
func (f *EastmoneyFetcher) FetchDailyBars(ctx context.Context, code string, limit int) ([]model.Bar, error) {
	secid, err := SecID(code)
	if err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}
	code6 := secid[2:]

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	q := url.Values{
		"cb":      {"jQuery3510_" + now},
		"secid":   {secid},
		"ut":      {"fa5fd1943c7b386f172d6893dbfba10b"},
		"fields1": {"f1,f2,f3,f4,f5,f6"},
		"fields2": {"f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"},
		"klt":     {"101"}, // daily
		"fqt":     {"1"},   // forward adjusted
		"end":     {"20500101"},
		"lmt":     {strconv.Itoa(limit)},
		"_":       {now},
	}

	endpoint := f.BaseURL + "/api/qt/stock/kline/get?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Code: code, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Code: code, Err: fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))}
	}

	bars, err := parseKlineResponse(code6, body)
	if err != nil {
		return nil, &FetchError{Code: code, Err: err}
	}
	return bars, nil
}

// FetchLatest returns the most recent daily bar. Intraday its close is the
// current price, not a settled close.
func (f *EastmoneyFetcher) FetchLatest(ctx context.Context, code string) (model.Bar, error) {
	bars, err := f.FetchDailyBars(ctx, code, 2)
	if err != nil {
		return model.Bar{}, err
	}
	return bars[len(bars)-1], nil
}

func parseKlineResponse(code6 string, body []byte) ([]model.Bar, error) {
	m := jsonpRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("cannot strip JSONP wrapper")
	}
	var payload emPayload
	if err := json.Unmarshal(m[1], &payload); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	if payload.Data == nil || len(payload.Data.Klines) == 0 {
		return nil, fmt.Errorf("no kline data returned")
	}

	// Kline fields: date,open,close,high,low,volume,amount,amplitude,pct_change,change,turnover
	bars := make([]model.Bar, 0, len(payload.Data.Klines))
	for _, line := range payload.Data.Klines {
		parts := strings.Split(line, ",")
		if len(parts) < 7 {
			continue
		}
		bar := model.Bar{
			Code:      code6,
			TradeDate: parts[0],
			Open:      parseFloat(parts[1]),
			Close:     parseFloat(parts[2]),
			High:      parseFloat(parts[3]),
			Low:       parseFloat(parts[4]),
			Volume:    parseFloat(parts[5]),
			Amount:    parseFloat(parts[6]),
		}
		if len(parts) > 9 {
			bar.PctChange = parseFloat(parts[8])
			bar.Change = parseFloat(parts[9])
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no parseable kline rows")
	}

	// Derive prev_close from the preceding row; the API omits it.
	for i := 1; i < len(bars); i++ {
		bars[i].PrevClose = bars[i-1].Close
	}
	return bars, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
