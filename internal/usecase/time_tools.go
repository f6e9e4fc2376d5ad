package usecase

import (
	"fmt"

	"github.com/i2y/mcptime/internal/domain"
)

// clockPattern mirrors domain.ParseClock so clients can validate before calling.
const clockPattern = `^([01]?[0-9]|2[0-3]):[0-5][0-9]$`

// TimeTools returns the descriptors of the tools served by mcptime.
// localZone is suggested to the model as the fallback zone.
func TimeTools(localZone string) []domain.Tool {
	return []domain.Tool{
		{
			Name:        string(domain.ToolGetCurrentTime),
			Description: "Get current time in a specific timezones",
			ReadOnly:    true,
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"timezone": {
						Type: "string",
						Description: fmt.Sprintf("IANA timezone name (e.g., 'America/New_York', 'Europe/London'). "+
							"Use '%s' as local timezone if no timezone provided by the user.", localZone),
					},
				},
				Required: []string{"timezone"},
			},
		},
		{
			Name:        string(domain.ToolConvertTime),
			Description: "Convert time between timezones",
			ReadOnly:    true,
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"source_timezone": {
						Type: "string",
						Description: fmt.Sprintf("Source IANA timezone name (e.g., 'America/New_York', 'Europe/London'). "+
							"Use '%s' as local timezone if no source timezone provided by the user.", localZone),
					},
					"time": {
						Type:        "string",
						Description: "Time to convert in 24-hour format (HH:MM)",
						Pattern:     clockPattern,
					},
					"target_timezone": {
						Type: "string",
						Description: fmt.Sprintf("Target IANA timezone name (e.g., 'Asia/Tokyo', 'America/San_Francisco'). "+
							"Use '%s' as local timezone if no target timezone provided by the user.", localZone),
					},
				},
				Required: []string{"source_timezone", "time", "target_timezone"},
			},
		},
	}
}
