// Package tray owns the notification-area icon and its menu.
package tray

import (
	"strings"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

const Title = "Screen Translate"

// ActionKind tags what the user picked from the menu.
type ActionKind int

const (
	ActionQuit ActionKind = iota
	ActionToggleMonitoring
	ActionChangeLanguage
)

func (k ActionKind) String() string {
	switch k {
	case ActionQuit:
		return "quit"
	case ActionToggleMonitoring:
		return "toggle-monitoring"
	case ActionChangeLanguage:
		return "change-language"
	default:
		return "unknown"
	}
}

// Action is one menu selection. Monitoring is set for ActionToggleMonitoring,
// Language for ActionChangeLanguage.
type Action struct {
	Kind       ActionKind
	Monitoring bool
	Language   string
}

var languageNames = map[string]string{
	"en": "English",
	"id": "Indonesian",
	"zh": "Chinese",
	"ja": "Japanese",
	"es": "Spanish",
	"ar": "Arabic",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"ru": "Russian",
	"ko": "Korean",
	"it": "Italian",
	"hi": "Hindi",
	"tr": "Turkish",
}

// LanguageName returns the display name for code, or the upper-cased code
// when it is not known.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}

// MenuLanguages lists the translation targets offered in the menu: the loaded
// languages without English, duplicates removed, order kept. The current
// target is always offered.
func MenuLanguages(loaded []string, current string) []string {
	seen := map[string]bool{"en": true}
	var out []string
	add := func(code string) {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code)
	}
	for _, code := range loaded {
		add(code)
	}
	add(current)
	return out
}

// menuState is the checkbox state behind the menu, kept apart from systray.
type menuState struct {
	mu         sync.Mutex
	monitoring bool
	language   string
}

func (s *menuState) toggle() Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitoring = !s.monitoring
	return Action{Kind: ActionToggleMonitoring, Monitoring: s.monitoring}
}

// choose reports false when code is already selected.
func (s *menuState) choose(code string) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.language == code {
		return Action{}, false
	}
	s.language = code
	return Action{Kind: ActionChangeLanguage, Language: code}, true
}

type Options struct {
	Languages  []string
	Current    string
	Monitoring bool
}

// Tray forwards menu clicks to Actions. Build must run inside systray's
// onReady callback.
type Tray struct {
	opts    Options
	state   *menuState
	actions chan Action
	done    chan struct{}
	once    sync.Once
	logger  *zap.SugaredLogger

	monitorItem *systray.MenuItem
}

func New(opts Options, logger *zap.SugaredLogger) *Tray {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Tray{
		opts:    opts,
		state:   &menuState{monitoring: opts.Monitoring, language: strings.ToLower(opts.Current)},
		actions: make(chan Action, 8),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

func (t *Tray) Actions() <-chan Action { return t.actions }

func (t *Tray) emit(a Action) {
	t.logger.Infow("Tray action", "action", a.Kind.String(), "monitoring", a.Monitoring, "language", a.Language)
	select {
	case t.actions <- a:
	case <-t.done:
	}
}

// Build creates the icon and menu and starts forwarding clicks.
func (t *Tray) Build() {
	systray.SetIcon(Icon())
	systray.SetTitle("")
	systray.SetTooltip(Title)

	mMonitor := systray.AddMenuItemCheckbox("Monitoring Active", "Translate selected text", t.opts.Monitoring)
	t.state.mu.Lock()
	t.monitorItem = mMonitor
	t.state.mu.Unlock()
	mLang := systray.AddMenuItem("Target Language", "Language to translate into")
	items := make(map[string]*systray.MenuItem)
	for _, code := range MenuLanguages(t.opts.Languages, t.opts.Current) {
		item := mLang.AddSubMenuItemCheckbox(LanguageName(code), code, code == t.state.language)
		items[code] = item
	}
	for code, item := range items {
		go t.forwardLanguage(code, item, items)
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit "+Title)

	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-mMonitor.ClickedCh:
				a := t.state.toggle()
				if a.Monitoring {
					mMonitor.Check()
				} else {
					mMonitor.Uncheck()
				}
				t.emit(a)
			case <-mQuit.ClickedCh:
				t.emit(Action{Kind: ActionQuit})
				return
			}
		}
	}()
	t.logger.Infow("Tray ready", "languages", len(items))
}

// forwardLanguage keeps the submenu checks exclusive.
func (t *Tray) forwardLanguage(code string, item *systray.MenuItem, items map[string]*systray.MenuItem) {
	for {
		select {
		case <-t.done:
			return
		case <-item.ClickedCh:
			a, changed := t.state.choose(code)
			for c, other := range items {
				if c == code {
					other.Check()
				} else {
					other.Uncheck()
				}
			}
			if changed {
				t.emit(a)
			}
		}
	}
}

// SetMonitoring updates the checkbox after monitoring changed elsewhere,
// e.g. through the hotkey.
func (t *Tray) SetMonitoring(on bool) {
	t.state.mu.Lock()
	t.state.monitoring = on
	item := t.monitorItem
	t.state.mu.Unlock()
	if item == nil {
		return
	}
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

// SetTooltip shows the service state on hover.
func (t *Tray) SetTooltip(text string) {
	systray.SetTooltip(text)
}

// Close stops forwarding clicks. It does not end the systray loop.
func (t *Tray) Close() {
	t.once.Do(func() { close(t.done) })
}
