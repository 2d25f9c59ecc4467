// Package weather reports the current temperature from the Open-Meteo APIs.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

var errNoTemperature = errors.New("forecast has no temperature values")

// Options configures the weather client.
type Options struct {
	GeocodingURL string
	ForecastURL  string
	RetryMax     int
	RetryWaitMin time.Duration
	Timeout      time.Duration
}

// Client looks up a city and reads its forecast.
type Client struct {
	http         *retryablehttp.Client
	geocodingURL string
	forecastURL  string
}

// New creates a weather client. Zero options fall back to the public
// Open-Meteo endpoints and five retries.
func New(opts Options) *Client {
	if opts.GeocodingURL == "" {
		opts.GeocodingURL = DefaultGeocodingURL
	}
	if opts.ForecastURL == "" {
		opts.ForecastURL = DefaultForecastURL
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 5
	}
	if opts.RetryWaitMin == 0 {
		opts.RetryWaitMin = 200 * time.Millisecond
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}

	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = opts.RetryWaitMin
	c.RetryWaitMax = 8 * opts.RetryWaitMin
	c.HTTPClient.Timeout = opts.Timeout
	c.Logger = slog.Default()

	return &Client{
		http:         c,
		geocodingURL: opts.GeocodingURL,
		forecastURL:  opts.ForecastURL,
	}
}

type location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodingResponse struct {
	Results []location `json:"results"`
}

type forecastResponse struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

// Current returns a spoken report for city. An unknown city is not an
// error: the report says so.
func (c *Client) Current(ctx context.Context, city string) (string, error) {
	loc, ok, err := c.geocode(ctx, city)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("Sorry, I couldn't find the weather for %s.", city), nil
	}

	temp, err := c.temperature(ctx, loc)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("The current temperature in %s is %s degrees Celsius.",
		city, strconv.FormatFloat(temp, 'f', 1, 64)), nil
}

func (c *Client) geocode(ctx context.Context, city string) (location, bool, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var resp geocodingResponse
	if err := c.getJSON(ctx, c.geocodingURL, q, &resp); err != nil {
		return location{}, false, fmt.Errorf("geocode %s: %w", city, err)
	}
	if len(resp.Results) == 0 {
		return location{}, false, nil
	}
	return resp.Results[0], true, nil
}

func (c *Client) temperature(ctx context.Context, loc location) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("hourly", "temperature_2m")
	q.Set("timezone", "auto")

	var resp forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, q, &resp); err != nil {
		return 0, fmt.Errorf("forecast: %w", err)
	}
	if len(resp.Hourly.Temperature) == 0 || resp.Hourly.Temperature[0] == nil {
		return 0, errNoTemperature
	}
	return *resp.Hourly.Temperature[0], nil
}

func (c *Client) getJSON(ctx context.Context, base string, q url.Values, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jarvis")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
