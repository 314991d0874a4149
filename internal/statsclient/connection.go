package statsclient

import (
	"context"
	"errors"
)

// ConnectionReport is the result of a connectivity probe.
type ConnectionReport struct {
	OK            bool   `json:"ok"`
	Message       string `json:"message"`
	HasCredential bool   `json:"has_credential"`
}

// TestConnection acquires a credential if needed and probes the statistics
// endpoint once, without the expiry retry. It never returns an error.
func (c *Client) TestConnection(ctx context.Context) ConnectionReport {
	token, err := c.credential(ctx)
	if err != nil {
		return ConnectionReport{
			OK:            false,
			Message:       "token acquisition failed: " + err.Error(),
			HasCredential: c.HasCredential(),
		}
	}

	_, err = c.getStatistics(ctx, token)
	report := ConnectionReport{HasCredential: c.HasCredential()}

	var fe *FetchError
	switch {
	case err == nil:
		report.OK = true
		report.Message = "token authentication succeeded"
	case errors.As(err, &fe) && fe.Kind == KindDecodeFailure:
		report.Message = "connected, but the statistics payload is malformed: " + fe.Message
	default:
		report.Message = "server error: " + err.Error()
	}

	c.log.Info().Bool("ok", report.OK).Str("message", report.Message).Msg("connection test")
	return report
}
