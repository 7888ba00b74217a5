// Package apitypes holds the JSON shapes exchanged with a VIIPER API server.
package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type BusListResponse struct {
	Buses []uint32 `json:"buses"`
}

type BusCreateResponse struct {
	BusID uint32 `json:"busId"`
}

type BusRemoveResponse struct {
	BusID uint32 `json:"busId"`
}

type Device struct {
	BusID uint32 `json:"busId"`
	DevId string `json:"devId"`
	Vid   string `json:"vid"`
	Pid   string `json:"pid"`
	Type  string `json:"type"`
}

type DeviceRemoveResponse struct {
	BusID uint32 `json:"busId"`
	DevId string `json:"devId"`
}

type DeviceCreateRequest struct {
	Type      *string `json:"type"`
	IdVendor  *uint16 `json:"idVendor,omitempty"`
	IdProduct *uint16 `json:"idProduct,omitempty"`
}
