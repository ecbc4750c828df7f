package kernel

import (
	"encoding/json"
	"net/http"
	"time"
)

// DebugServer exposes read-only introspection endpoints over the kernel's
// process table and runqueue, the debug-surface equivalent of the teacher's
// admin routes.
type DebugServer struct {
	k      *Kernel
	addr   string
	router *http.ServeMux
}

// NewDebugServer wires the debug routes for k, listening on addr.
func NewDebugServer(k *Kernel, addr string) *DebugServer {
	d := &DebugServer{k: k, addr: addr, router: http.NewServeMux()}
	d.routes()
	return d
}

func (d *DebugServer) routes() {
	d.router.HandleFunc("/debug/uptime", d.handleUptime)
	d.router.HandleFunc("/debug/procs", d.handleProcs)
	d.router.HandleFunc("/debug/runqueue", d.handleRunqueue)
}

// Start blocks serving the debug surface until the listener errors or is
// closed.
func (d *DebugServer) Start() error {
	srv := &http.Server{
		Addr:         d.addr,
		Handler:      d.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return srv.ListenAndServe()
}

type uptimeResponse struct {
	Ticks     uint64 `json:"ticks"`
	WallClock string `json:"wall_clock"`
	SessionID string `json:"session_id"`
}

func (d *DebugServer) handleUptime(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, uptimeResponse{
		Ticks:     d.k.Uptime(),
		WallClock: d.k.UptimeWall().String(),
		SessionID: d.k.SessionID,
	})
}

func (d *DebugServer) handleProcs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, d.k.Table.Snapshot())
}

func (d *DebugServer) handleRunqueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, d.k.Table.RunqueueSnapshot())
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
