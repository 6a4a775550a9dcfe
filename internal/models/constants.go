package models

// Backend endpoint paths, relative to the configured base URL. These mirror
// the multi-agent service's FastAPI routes.
const (
	EndpointAgent         = "/agent/"
	EndpointSessions      = "/chat_sessions/sessions"
	EndpointMessages      = "/chat_sessions/messages"
	EndpointDeleteSession = "/chat_sessions/delete_session"
	EndpointFiles         = "/chat_sessions/files"
	EndpointHealth        = "/health"
)

// Event type discriminator values on stream frames. Anything other than
// EventContent is treated as a reasoning/progress frame.
const (
	EventContent  = "content"
	EventProgress = "progress"
)
