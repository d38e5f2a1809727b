// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the service.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	RemoteOperationKey = "remote.operation"
	RemoteVideoIDKey   = "remote.video_id"

	VideoAssetIDKey   = "video.asset_id"
	VideoContextIDKey = "video.context_id"
	VideoStatusKey    = "video.status"

	JobTypeKey   = "job.type"
	JobStatusKey = "job.status"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RemoteAttributes describes a call to the hosting service.
func RemoteAttributes(operation, remoteID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(RemoteOperationKey, operation)}
	if remoteID != "" {
		attrs = append(attrs, attribute.String(RemoteVideoIDKey, remoteID))
	}
	return attrs
}

// VideoAttributes describes the tracked record a span works on.
func VideoAttributes(assetID, contextID, status string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if assetID != "" {
		attrs = append(attrs, attribute.String(VideoAssetIDKey, assetID))
	}
	if contextID != "" {
		attrs = append(attrs, attribute.String(VideoContextIDKey, contextID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(VideoStatusKey, status))
	}
	return attrs
}

// JobAttributes describes a background job.
func JobAttributes(jobType, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
	}
}

// ErrorAttributes annotates a span with an error classification.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
