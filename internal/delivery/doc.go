// Package delivery sends message payloads to chat endpoints under an
// external rate limit.
//
// # State machine
//
// Each Deliver call runs a small bounded state machine:
//
//	Sending --2xx--> Success
//	Sending --429--> Throttled --sleep(retry_after)--> Sending
//	Sending --other status / transport error--> Failed
//	Throttled --retries exhausted--> Failed
//
// The wait for a throttled attempt is read from the response body's
// retry_after field (seconds), defaulting to one second, and clamped to
// [MinWait, MaxWait]. Sleeping goes through an injectable Sleeper so the
// backoff contract can be tested without real time passing.
//
// Deliver never returns a Go error: failures are reported in Result so one
// bad message never aborts the rest of a run.
//
// # Posters
//
// A Poster performs exactly one attempt. WebhookPoster speaks the Discord
// webhook dialect ({"content": ...}); TelegramPoster sends through the Bot
// API. Router picks one by destination.
package delivery
