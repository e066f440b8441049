package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/tidwall/gjson"
)

const (
	// WeatherToolName 天气工具名称
	WeatherToolName = "weatherTool"

	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	currentWeatherFields = "temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,wind_gusts_10m,weather_code"
)

// WeatherReport is the tool output.
type WeatherReport struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	WindGust    float64 `json:"windGust"`
	Conditions  string  `json:"conditions"`
	Location    string  `json:"location"`
}

// WeatherTool 天气工具（open-meteo）
type WeatherTool struct {
	geocodingURL string
	forecastURL  string
	client       *http.Client
}

// NewWeatherTool 创建天气工具
func NewWeatherTool(cfg config.WeatherToolConfig) *WeatherTool {
	timeout := 10 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	t := &WeatherTool{
		geocodingURL: cfg.GeocodingURL,
		forecastURL:  cfg.ForecastURL,
		client:       &http.Client{Timeout: timeout},
	}
	if t.geocodingURL == "" {
		t.geocodingURL = DefaultGeocodingURL
	}
	if t.forecastURL == "" {
		t.forecastURL = DefaultForecastURL
	}
	return t
}

// Name 返回工具名称
func (t *WeatherTool) Name() string {
	return WeatherToolName
}

// Description 返回工具描述
func (t *WeatherTool) Description() string {
	return "Get current weather for a location"
}

// Parameters 返回参数定义
func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "City name",
			},
		},
		"required": []string{"location"},
	}
}

// Execute 查询天气
func (t *WeatherTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	location, _ := params["location"].(string)
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("location parameter is required")
	}

	report, err := t.Lookup(ctx, location)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode weather: %w", err)
	}
	return string(data), nil
}

// Lookup geocodes location and fetches its current weather.
func (t *WeatherTool) Lookup(ctx context.Context, location string) (*WeatherReport, error) {
	geoQuery := url.Values{}
	geoQuery.Set("name", location)
	geoQuery.Set("count", "1")

	geo, err := t.getJSON(ctx, t.geocodingURL, geoQuery)
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}

	place := gjson.GetBytes(geo, "results.0")
	if !place.Exists() {
		return nil, fmt.Errorf("Location '%s' not found", location)
	}

	forecastQuery := url.Values{}
	forecastQuery.Set("latitude", strconv.FormatFloat(place.Get("latitude").Float(), 'f', -1, 64))
	forecastQuery.Set("longitude", strconv.FormatFloat(place.Get("longitude").Float(), 'f', -1, 64))
	forecastQuery.Set("current", currentWeatherFields)

	forecast, err := t.getJSON(ctx, t.forecastURL, forecastQuery)
	if err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}

	current := gjson.GetBytes(forecast, "current")
	if !current.Exists() {
		return nil, fmt.Errorf("forecast response has no current weather")
	}

	return &WeatherReport{
		Temperature: current.Get("temperature_2m").Float(),
		FeelsLike:   current.Get("apparent_temperature").Float(),
		Humidity:    current.Get("relative_humidity_2m").Float(),
		WindSpeed:   current.Get("wind_speed_10m").Float(),
		WindGust:    current.Get("wind_gusts_10m").Float(),
		Conditions:  WeatherCondition(int(current.Get("weather_code").Int())),
		Location:    place.Get("name").String(),
	}, nil
}

func (t *WeatherTool) getJSON(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}
	return body, nil
}

// weatherConditions WMO 天气代码
var weatherConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherCondition maps a WMO weather code to text.
func WeatherCondition(code int) string {
	if c, ok := weatherConditions[code]; ok {
		return c
	}
	return "Unknown"
}
