package routing

import (
	"context"
	"fmt"

	"taskmint/internal/pkg/httpclient"
)

// Coordinate is a GPS point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Plan is the routing service's answer for one tour: the optimized visiting
// order of the waypoints and per-leg travel metrics. Legs connect consecutive
// stops of the full route (origin, waypoints in optimized order,
// destination), so len(LegDurationSec) == number of stops − 1.
type Plan struct {
	WaypointOrder  []int     `json:"ordered_waypoint_indices"`
	LegDistanceM   []float64 `json:"per_leg_distance_meters"`
	LegDurationSec []float64 `json:"per_leg_duration_seconds"`
}

// Service resolves an optimized route through a set of checkpoints. The call
// crosses the network; the client owns timeout and retry.
type Service interface {
	GetRoute(ctx context.Context, origin, destination Coordinate, waypoints []Coordinate) (*Plan, error)
}

// Client talks to the route-optimization HTTP service.
type Client struct {
	http *httpclient.Client
}

type routeRequest struct {
	Origin      Coordinate   `json:"origin"`
	Destination Coordinate   `json:"destination"`
	Waypoints   []Coordinate `json:"waypoints"`
	Optimize    bool         `json:"optimize"`
}

type routeResponse struct {
	Status string `json:"status"`
	Route  *Plan  `json:"route"`
	Error  string `json:"error"`
}

// New builds a routing client on top of a preconfigured HTTP client
// (base URL, auth, timeout).
func New(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// GetRoute asks the routing service for an optimized visiting order and
// per-leg travel times.
func (c *Client) GetRoute(ctx context.Context, origin, destination Coordinate, waypoints []Coordinate) (*Plan, error) {
	var out routeResponse
	resp, err := c.http.Request().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(routeRequest{
			Origin:      origin,
			Destination: destination,
			Waypoints:   waypoints,
			Optimize:    true,
		}).
		SetResult(&out).
		Post("/v1/route")
	if err != nil {
		return nil, fmt.Errorf("routing service call failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("routing service returned %s", resp.Status())
	}
	if out.Route == nil {
		if out.Error != "" {
			return nil, fmt.Errorf("routing service error: %s", out.Error)
		}
		return nil, fmt.Errorf("routing service returned no route")
	}
	return out.Route, nil
}
