package model

import "time"

type ServerStatus string

const (
	ServerStatusOnline  ServerStatus = "online"
	ServerStatusOffline ServerStatus = "offline"
	ServerStatusWarning ServerStatus = "warning"
)

// ServerNode is a mock infrastructure node shown on the dashboard
type ServerNode struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status ServerStatus `json:"status"`
	IP     string       `json:"ip"`
	Region string       `json:"region"`
}

// MetricSample is one point of the mock utilization chart, values in percent
type MetricSample struct {
	Time    time.Time `json:"time"`
	CPU     int       `json:"cpu"`
	Memory  int       `json:"memory"`
	Network int       `json:"network"`
}
