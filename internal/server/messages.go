package server

import "github.com/longformhq/longform/internal/embedloader"

// clientMessage is the envelope for everything a reader session sends
// up the websocket.
type clientMessage struct {
	Type         string                      `json:"type"`
	Capabilities embedloader.Capabilities    `json:"capabilities,omitempty"`
	Node         string                      `json:"node,omitempty"`
	Rects        map[string]embedloader.Rect `json:"rects,omitempty"`
	Viewport     embedloader.Viewport        `json:"viewport,omitempty"`
}

// Client message types.
const (
	msgHello     = "hello"     // capability handshake, starts observation
	msgLoaded    = "loaded"    // page load event with placeholder geometry
	msgIntersect = "intersect" // one placeholder entered the viewport
	msgManual    = "manual"    // user pressed a placeholder's load control
)

// serverMessage is the envelope for everything pushed down to a reader.
type serverMessage struct {
	Type      string        `json:"type"`
	Node      string        `json:"node,omitempty"`
	HTML      string        `json:"html,omitempty"`
	State     string        `json:"state,omitempty"`
	Message   string        `json:"message,omitempty"`
	Permalink string        `json:"permalink,omitempty"`
	Config    *clientConfig `json:"config,omitempty"`
}

// Server message types.
const (
	msgConfig  = "config"  // observer configuration, sent on connect
	msgEmbed   = "embed"   // fragment to attach in place of a placeholder
	msgState   = "state"   // descriptor state transition
	msgError   = "error"   // terminal failure affordance
	msgProcess = "process" // run the provider post-processor on a node
)

// clientConfig parameterizes the browser-side observer.
type clientConfig struct {
	LookaheadMarginPx int     `json:"lookahead_margin_px"`
	VisibleThreshold  float64 `json:"visible_threshold"`
	SettleDelayMS     int     `json:"settle_delay_ms"`
	ScriptPath        string  `json:"script_path"`
	Version           string  `json:"version"`
}
