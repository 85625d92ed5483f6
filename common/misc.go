package common

import (
	"os"
)

var serviceName = "trackflow"

func GetServiceName() string {
	return serviceName
}

func GetServiceInstance() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	return hostname
}
