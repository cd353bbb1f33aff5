package remote

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

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Place is the address part of a Nominatim reverse lookup.
type Place struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	County  string `json:"county"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// String renders the place as the sentence shown when a task loads.
func (p Place) String() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{firstNonEmpty(p.City, p.Town, p.Village), p.County, p.State, p.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "We are somewhere on earth.."
	}
	return "We are in " + strings.Join(parts, ", ") + "."
}

// Nominatim is a reverse geocoder for any Nominatim compatible endpoint.
type Nominatim struct {
	base      string
	http      *http.Client
	userAgent string
	tracer    trace.Tracer
}

func NewNominatim(baseURL string, hc *http.Client) *Nominatim {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Nominatim{
		base:      strings.TrimRight(baseURL, "/"),
		http:      hc,
		userAgent: "mrtui",
		tracer:    otel.Tracer(tracerName),
	}
}

func (n *Nominatim) ReverseGeocode(ctx context.Context, p orb.Point) (Place, error) {
	ctx, span := n.tracer.Start(ctx, "nominatim reverse",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Float64("geo.lon", p.Lon()), attribute.Float64("geo.lat", p.Lat())),
	)
	defer span.End()

	v := url.Values{}
	v.Set("format", "jsonv2")
	v.Set("zoom", "12")
	v.Set("lon", strconv.FormatFloat(p.Lon(), 'f', -1, 64))
	v.Set("lat", strconv.FormatFloat(p.Lat(), 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/reverse?"+v.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return Place{}, &TransportError{Method: http.MethodGet, Path: "/reverse", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Place{}, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}
	var doc struct {
		Address Place `json:"address"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&doc); err != nil {
		return Place{}, fmt.Errorf("decode reverse geocode: %w", err)
	}
	return doc.Address, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
