// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// companion is a terminal client for the retrieval-augmented news
// companion backend. It wires the conversation engine (store, client,
// lifecycle controller, reveal scheduler, orchestrator) into a bubbletea
// TUI.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/companion-tui/internal/chat"
	"github.com/jeranaias/companion-tui/internal/companion"
	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/reveal"
	"github.com/jeranaias/companion-tui/internal/storage"
	"github.com/jeranaias/companion-tui/internal/store"
	uichat "github.com/jeranaias/companion-tui/internal/ui/chat"
	"github.com/jeranaias/companion-tui/internal/visitor"
)

var version = "0.1.0"

func main() {
	langFlag := flag.String("lang", "", "answer language: pl, en, de")
	serverFlag := flag.String("server", "", "companion backend base URL")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("companion " + version)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "companion: an interactive terminal is required")
		os.Exit(1)
	}

	if err := run(*serverFlag, *langFlag); err != nil {
		fmt.Fprintln(os.Stderr, "companion:", err)
		os.Exit(1)
	}
}

func run(serverOverride, langOverride string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serverOverride != "" {
		cfg.Server.BaseURL = serverOverride
	}
	if langOverride != "" {
		cfg.Language = langOverride
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lipgloss.SetColorProfile(termenv.ColorProfile())

	visitorID, err := visitor.Load(cfg.DataDir)
	if err != nil {
		return err
	}

	db, err := storage.Open(filepath.Join(cfg.DataDir, "companion.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	if messages, err := db.LoadMessages(); err == nil && len(messages) > 0 {
		st.RestoreMessages(messages)
	}

	client := companion.NewClient(cfg.Server.BaseURL, visitorID, cfg.Language)

	sched := reveal.NewScheduler()
	sched.SetDelays(
		time.Duration(cfg.Reveal.FastDelayMs)*time.Millisecond,
		time.Duration(cfg.Reveal.SlowDelayMs)*time.Millisecond,
	)

	// The program reference is set after construction; the scroll hook
	// may fire from a timer goroutine before Run starts.
	var programMu sync.Mutex
	var program *tea.Program
	send := func(msg tea.Msg) {
		programMu.Lock()
		p := program
		programMu.Unlock()
		if p != nil {
			p.Send(msg)
		}
	}

	scroll := uichat.NewScrollState()
	orch := chat.New(st, client, sched, chat.Hooks{
		AtBottom: scroll.AtBottom,
		Scroll:   func() { send(uichat.ScrollToBottomMsg{}) },
	})
	defer orch.Close()

	model := uichat.New(orch, st, scroll, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	programMu.Lock()
	program = p
	programMu.Unlock()

	unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		send(uichat.StoreChangedMsg{Snapshot: snap})
	})
	defer unsubscribe()

	// Live config reload: language and reveal pacing apply immediately,
	// everything else on next start.
	if stopWatch, err := config.Watch(config.Path(), func(fresh *config.Config) {
		client.SetLanguage(fresh.Language)
		sched.SetDelays(
			time.Duration(fresh.Reveal.FastDelayMs)*time.Millisecond,
			time.Duration(fresh.Reveal.SlowDelayMs)*time.Millisecond,
		)
	}); err == nil {
		defer stopWatch()
	}

	_, err = p.Run()
	return err
}
