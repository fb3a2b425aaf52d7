// Package chat is the conversational subsystem. It owns the
// microphone while active: every transcript runs through a small
// command vocabulary first (movement, dance, patrol, stop, help,
// notes, remember, farewells) and falls through to a language model
// for everything else. Replies come back as speech with a matching
// emotion on the broadcaster.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/audio"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/inference"
	"github.com/teslashibe/go-raspbot/pkg/memory"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/notes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
	"github.com/teslashibe/go-raspbot/pkg/tts"
	"github.com/teslashibe/go-raspbot/pkg/voice"
)

// Spoken lines for the scripted paths.
const (
	lineParty        = "Okay, time to party!"
	linePatrol       = "moving in a square"
	lineStopping     = "Stopping."
	lineHelp         = "You can ask me to go forward, back, left, or right. You can also say turn left or turn right."
	lineGoodbye      = "Goodbye!"
	lineNoted        = "Okay, noted."
	lineNoteEmpty    = "What should the note say?"
	lineNoteFailed   = "I could not save that note."
	lineNoNotes      = "I can't take notes right now."
	lineRemembered   = "Okay, I'll remember that."
	lineRememberHelp = "Tell me like this: remember my favorite color is blue."
	lineNoMemory     = "I can't remember things right now."
	lineNoModel      = "Chat model not installed."
	lineUnsure       = "I'm not sure how to respond."
	lineWiresCrossed = "I seem to have gotten my wires crossed."
)

// transcriptBacklog bounds transcripts waiting behind the one being
// handled. The mic is paused while the robot speaks, so this rarely
// fills.
const transcriptBacklog = 4

// MoveSink is where spoken movement commands go. movement.Manager
// implements it.
type MoveSink interface {
	QueueMove(m movement.Move)
	StopMove()
	Halt()
}

// CommandSink receives the commands that leave chat mode.
// command.Normalizer implements it.
type CommandSink interface {
	StopAll(src command.Source)
}

// Deps bundles what the chat engine needs from the rest of the robot.
// Mic is required. Everything else degrades: without Brain the robot
// only knows the command vocabulary, without Speech or Player it is
// mute, without Drive the movement commands are talk only.
type Deps struct {
	Mic      voice.Pipeline
	Brain    inference.Provider
	Speech   tts.Provider
	Player   *audio.Player
	Drive    MoveSink
	Emotions *emotion.Broadcaster
	Memory   *memory.Memory
	Notes    *notes.Service
	Commands CommandSink
}

// Chat is the conversational subsystem.
//
// A Chat survives mode switches. Construct it once and hand the same
// instance to every activation: the greeting plays only the first
// time and the conversation picks up where it left off.
type Chat struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	status  atomic.Value // string
	greeted bool

	// history holds the user/assistant exchange behind the system
	// prompt, already clamped. Touched only from the Run goroutine.
	history []inference.Message
}

var _ resource.Subsystem = (*Chat)(nil)

// New creates a chat engine. Deps.Mic must be set.
func New(cfg Config, deps Deps) (*Chat, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Mic == nil {
		return nil, errors.New("chat: microphone pipeline required")
	}

	c := &Chat{
		cfg:    cfg,
		deps:   deps,
		logger: log.L().With("component", "chat"),
	}
	c.status.Store("idle")
	return c, nil
}

// Run starts the recognizer and serves transcripts until the context
// is cancelled. A clean stop returns nil.
func (c *Chat) Run(ctx context.Context) error {
	transcripts := make(chan string, transcriptBacklog)
	c.deps.Mic.OnTranscript(func(text string, final bool) {
		if !final {
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		select {
		case transcripts <- text:
		default:
			c.logger.Warn("transcript dropped, engine busy", "text", text)
		}
	})
	c.deps.Mic.OnError(func(err error) {
		c.logger.Warn("recognizer error", "error", err)
	})

	if err := c.deps.Mic.Start(ctx); err != nil {
		return fmt.Errorf("chat: start recognizer: %w", err)
	}
	defer func() {
		if err := c.deps.Mic.Stop(); err != nil {
			c.logger.Warn("recognizer stop failed", "error", err)
		}
		if c.deps.Drive != nil {
			c.deps.Drive.Halt()
		}
		c.setStatus("idle")
	}()

	c.setStatus("listening")
	c.setEmotion(emotion.Neutral, 0.5)

	if !c.greeted {
		c.greeted = true
		c.say(ctx, c.cfg.greeting(), emotion.Happy)
	} else {
		c.logger.Debug("greeting suppressed on reactivation")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-transcripts:
			c.handle(ctx, text)
		}
	}
}

// Status reports what the engine is doing, one of idle, listening,
// thinking, or speaking.
func (c *Chat) Status() string {
	if v := c.status.Load(); v != nil {
		return v.(string)
	}
	return "idle"
}

func (c *Chat) setStatus(s string) {
	c.status.Store(s)
}

func (c *Chat) setEmotion(e emotion.Emotion, intensity float64) {
	if c.deps.Emotions != nil {
		c.deps.Emotions.Set(e, intensity, modes.AiChat().String())
	}
}

// handle runs one transcript through the vocabulary and then the
// model.
func (c *Chat) handle(ctx context.Context, text string) {
	c.logger.Info("heard", "text", text)

	d := parseDirective(text)
	if d.kind == directiveNone {
		c.converse(ctx, text)
		return
	}
	c.execute(ctx, d)
}

func (c *Chat) execute(ctx context.Context, d directive) {
	switch d.kind {
	case directiveDance:
		c.say(ctx, lineParty, emotion.Happy)
		c.queueMove(movement.NewDanceRoutine())

	case directivePatrol:
		c.say(ctx, linePatrol, emotion.Happy)
		c.queueMove(movement.NewPatrolSquare())

	case directiveStop:
		if c.deps.Drive != nil {
			c.deps.Drive.StopMove()
			c.deps.Drive.Halt()
		}
		c.say(ctx, lineStopping, emotion.Neutral)

	case directiveHelp:
		c.say(ctx, lineHelp, emotion.Neutral)

	case directiveMove:
		c.queueMove(movement.NewTimedMove(d.phrase, d.drive(c.cfg.MoveSpeed), c.cfg.MoveDuration))
		c.say(ctx, fmt.Sprintf("Okay, %s.", d.phrase), emotion.Neutral)

	case directiveFarewell:
		if c.deps.Drive != nil {
			c.deps.Drive.StopMove()
			c.deps.Drive.Halt()
		}
		c.say(ctx, lineGoodbye, emotion.Happy)
		if c.deps.Commands != nil {
			c.deps.Commands.StopAll(command.SourceVoice)
		}

	case directiveNote:
		c.takeNote(ctx, d.arg)

	case directiveRemember:
		c.remember(ctx, d.arg)
	}
}

func (c *Chat) queueMove(m movement.Move) {
	if c.deps.Drive == nil {
		c.logger.Debug("no drive wired, skipping move", "move", m.Name())
		return
	}
	c.deps.Drive.QueueMove(m)
}

func (c *Chat) takeNote(ctx context.Context, content string) {
	if c.deps.Notes == nil {
		c.say(ctx, lineNoNotes, emotion.Neutral)
		return
	}
	if content == "" {
		c.say(ctx, lineNoteEmpty, emotion.Neutral)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, c.cfg.ThinkTimeout)
	defer cancel()

	if _, err := c.deps.Notes.Take(tctx, content); err != nil {
		c.logger.Warn("note failed", "error", err)
		c.say(ctx, lineNoteFailed, emotion.Angry)
		return
	}
	c.say(ctx, lineNoted, emotion.Happy)
}

func (c *Chat) remember(ctx context.Context, clause string) {
	if c.deps.Memory == nil {
		c.say(ctx, lineNoMemory, emotion.Neutral)
		return
	}

	w, ok := parseRememberClause(clause)
	if !ok {
		c.say(ctx, lineRememberHelp, emotion.Neutral)
		return
	}

	if w.person {
		c.deps.Memory.RememberPerson(w.key, w.value)
	} else {
		c.deps.Memory.SetContext(w.key, w.value)
	}
	c.say(ctx, lineRemembered, emotion.Happy)
}

// converse sends the transcript to the language model and speaks the
// structured reply.
func (c *Chat) converse(ctx context.Context, text string) {
	c.setStatus("thinking")
	c.history = append(c.history, inference.NewUserMessage(text))

	spoken, feel := c.think(ctx)

	c.history = clampHistory(c.history, c.cfg.HistoryLimit)
	c.say(ctx, spoken, feel)
}

// think runs one model turn over the current history and appends the
// assistant's half, substituting contract-shaped stand-ins on error
// so the model sees a consistent conversation next turn.
func (c *Chat) think(ctx context.Context) (string, emotion.Emotion) {
	if c.deps.Brain == nil {
		c.history = append(c.history, inference.NewAssistantMessage(encodeReply(lineNoModel, emotion.Angry)))
		return lineNoModel, emotion.Angry
	}

	msgs := make([]inference.Message, 0, len(c.history)+1)
	msgs = append(msgs, inference.NewSystemMessage(c.systemPrompt()))
	msgs = append(msgs, c.history...)

	tctx, cancel := context.WithTimeout(ctx, c.cfg.ThinkTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.deps.Brain.Chat(tctx, &inference.ChatRequest{Messages: msgs})
	if err != nil {
		c.logger.Warn("model turn failed", "error", err)
		spoken, feel := lineWiresCrossed, emotion.Angry
		if errors.Is(err, inference.ErrProviderUnavailable) {
			spoken = lineNoModel
		}
		c.history = append(c.history, inference.NewAssistantMessage(encodeReply(spoken, feel)))
		return spoken, feel
	}

	c.logger.Debug("model replied",
		"elapsed", time.Since(start),
		"tokens", resp.Usage.TotalTokens,
	)
	c.history = append(c.history, inference.NewAssistantMessage(resp.Message.Content))

	spoken, feel := parseReply(resp.Message.Content)
	if spoken == "" {
		spoken, feel = lineWiresCrossed, emotion.Angry
	}
	return spoken, feel
}

func (c *Chat) systemPrompt() string {
	var facts, titles []string
	if c.deps.Memory != nil {
		facts = c.deps.Memory.PromptFacts(c.cfg.MemoryFacts)
	}
	if c.deps.Notes != nil && c.cfg.RecentNotes > 0 {
		if all, err := c.deps.Notes.List(); err == nil {
			for _, n := range all {
				if len(titles) == c.cfg.RecentNotes {
					break
				}
				titles = append(titles, n.Title)
			}
		}
	}
	return buildSystemPrompt(c.cfg.Name, facts, titles)
}

// say routes the emotion to the broadcaster and the text through TTS
// to the speaker, with the microphone gated so the robot does not
// transcribe itself. It returns once playback finishes, leaving the
// engine back in the listening state.
func (c *Chat) say(ctx context.Context, text string, feel emotion.Emotion) {
	if text == "" {
		return
	}
	defer c.setStatus("listening")

	c.setEmotion(feel, speakIntensity(feel))
	c.logger.Info("speaking", "text", text, "emotion", feel.String())

	if c.deps.Speech == nil || c.deps.Player == nil {
		return
	}

	c.setStatus("speaking")
	c.deps.Mic.Pause()
	defer c.deps.Mic.Resume()

	tctx, cancel := context.WithTimeout(ctx, c.cfg.ThinkTimeout)
	defer cancel()

	res, err := c.deps.Speech.Synthesize(tctx, text)
	if err != nil {
		c.logger.Warn("synthesis failed", "error", err)
		return
	}

	clip := audio.Clip{Samples: res.PCM, SampleRate: res.SampleRate, Text: text}
	if err := c.deps.Player.Say(clip); err != nil {
		c.logger.Warn("playback refused", "error", err)
		return
	}
	c.waitForQuiet(ctx)
}

// waitForQuiet blocks until the player drains, polling rather than
// hooking playback callbacks so the player stays shared with the
// other subsystems.
func (c *Chat) waitForQuiet(ctx context.Context) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := c.deps.Player.Stats()
			if st.Queued == 0 && !st.Speaking {
				return
			}
		}
	}
}

// speakIntensity maps reply emotions to broadcast intensity. Neutral
// chatter stays soft so interrupt reactions read stronger.
func speakIntensity(e emotion.Emotion) float64 {
	switch e {
	case emotion.Neutral:
		return 0.5
	case emotion.Happy, emotion.Angry:
		return 0.9
	default:
		return 0.8
	}
}
