// Command hostdemo drives a Manager against a mock emulator core, the way
// the GUI build drives it against the real one: a vsync-paced render loop
// plus a pacing goroutine, with plugin list-changed events mirrored out
// over a WebSocket for any attached tooling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/TheGreatRambler/yuzu/emu"
	"github.com/TheGreatRambler/yuzu/pluginhost"
	"github.com/TheGreatRambler/yuzu/storage"
)

func main() {
	var pluginDir string
	var headless bool
	var wsPort string
	flag.StringVar(&pluginDir, "plugins", storage.DefaultPluginScanDir(), "directory to scan and watch for plugin libraries")
	flag.BoolVar(&headless, "headless", false, "run without a display window")
	flag.StringVar(&wsPort, "ws-port", "42069", "port for the list-changed WebSocket feed")
	flag.Parse()

	lockPath := storage.DataFile(".hostdemo.lock")
	lockFile, owned, cleanup, err := acquireLock(lockPath)
	if err != nil {
		log.Fatalf("hostdemo: failed to acquire lock: %v", err)
	}
	_ = lockFile
	defer cleanup()
	if !owned {
		log.Fatalf("hostdemo: another instance is already running (%s)", lockPath)
	}

	system := emu.NewMockSystem()
	hid := emu.NewMockHID()
	manager := pluginhost.NewManager(system, hid)

	system.Boot("demo.nsp", 0x0100000000010000)

	loaded := make(map[string]bool)
	for _, entry := range manager.Roster() {
		if !entry.Enabled {
			continue
		}
		if _, err := os.Stat(entry.Path); err != nil {
			log.Printf("hostdemo: skipping previously enabled %s: %v", entry.Path, err)
			continue
		}
		if _, err := manager.Load(entry.Path); err != nil {
			log.Printf("hostdemo: failed to reload %s: %v", entry.Path, err)
			continue
		}
		loaded[entry.Path] = true
	}

	if found, err := pluginhost.ScanPluginDir(pluginDir); err == nil {
		for _, path := range found {
			if loaded[path] {
				continue
			}
			if _, err := manager.Load(path); err != nil {
				log.Printf("hostdemo: failed to load %s: %v", path, err)
			}
		}
	}
	if err := manager.WatchPluginDir(pluginDir); err != nil {
		log.Printf("hostdemo: not watching %s: %v", pluginDir, err)
	}

	manager.SetActive(true)
	defer manager.Close()

	hub := newWSHub(manager)
	go hub.run(wsPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if headless {
		fmt.Printf("hostdemo: running headless, watching %s, ws feed on :%s/ws\n", pluginDir, wsPort)
		<-sigChan
		fmt.Println("hostdemo: shutting down")
		return
	}

	ebiten.SetWindowTitle("plugin host demo")
	ebiten.SetWindowSize(1280, 720)
	game := &demoGame{manager: manager, system: system}
	go func() {
		<-sigChan
		os.Exit(0)
	}()
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}

// demoGame stands in for the real emulator's render loop: its Update is the
// vsync tick that resumes every plugin parked at a vsync boundary until it
// parks at one again.
type demoGame struct {
	manager *pluginhost.Manager
	system  *emu.MockSystem
}

func (g *demoGame) Update() error {
	g.system.AdvanceFrame()
	g.manager.DriveVsync()
	return nil
}

func (g *demoGame) Draw(screen *ebiten.Image) {
	g.manager.Overlay().Render(g.system.Emulating())
}

func (g *demoGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func acquireLock(path string) (*os.File, bool, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	owned := true
	if err != nil {
		if !os.IsExist(err) {
			return nil, false, nil, err
		}
		owned = false
		f, err = os.OpenFile(path, os.O_WRONLY, 0o644)
		if err != nil {
			return nil, false, nil, err
		}
	}
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			_ = f.Close()
			if owned {
				_ = os.Remove(path)
			}
		})
	}
	return f, owned, cleanup, nil
}

// wsHub mirrors list-changed events from the manager's notify hub out to
// any connected WebSocket client, grounded on api/api.go's hub/broadcast
// split but trimmed to the single event type this demo needs.
type wsHub struct {
	manager  *pluginhost.Manager
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

func newWSHub(manager *pluginhost.Manager) *wsHub {
	return &wsHub{
		manager: manager,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *wsHub) run(port string) {
	events, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()

	go func() {
		for ev := range events {
			h.broadcast(ev)
		}
	}()

	http.HandleFunc("/ws", h.handle)
	log.Printf("hostdemo: ws feed listening on :%s/ws", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("hostdemo: ws server stopped: %v", err)
	}
}

func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	for _, path := range h.manager.Enumerate() {
		_ = conn.WriteJSON(pluginhost.ListChangedEvent{Path: path, Loaded: true})
	}

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *wsHub) broadcast(ev pluginhost.ListChangedEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}
