// Package schedule fires commands on a cron timetable. Rules come
// from config as "SPEC=COMMAND" strings, so the robot can start the
// morning presentation or park itself at night without anyone at the
// dashboard.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// CommandSink is the normalizer surface the scheduler drives.
type CommandSink interface {
	SelectMode(m modes.Mode, src command.Source)
	StopAll(src command.Source)
	Exit(src command.Source)
}

// Rule is one parsed timetable entry.
type Rule struct {
	// Spec is the five-field cron schedule.
	Spec string

	// Command is the normalized command text: "stop", "exit", or a
	// mode name with an optional color argument.
	Command string
}

// Scheduler arms a cron timetable that injects commands into the
// queue with the schedule source.
type Scheduler struct {
	cron   *cron.Cron
	rules  []Rule
	sink   CommandSink
	logger *slog.Logger
}

// New parses the rule strings and builds the timetable. Each rule is
// "SPEC=COMMAND", for example "0 9 * * 1-5=presentation" or
// "0 22 * * *=stop". Any rule that does not parse fails construction.
func New(rules []string, sink CommandSink) (*Scheduler, error) {
	if sink == nil {
		return nil, errors.New("schedule: command sink is required")
	}

	s := &Scheduler{
		cron:   cron.New(),
		sink:   sink,
		logger: log.L().With("component", "schedule"),
	}

	for _, raw := range rules {
		rule, fire, err := s.parse(raw)
		if err != nil {
			return nil, err
		}
		if _, err := s.cron.AddFunc(rule.Spec, fire); err != nil {
			return nil, fmt.Errorf("schedule: rule %q: %w", raw, err)
		}
		s.rules = append(s.rules, rule)
	}

	return s, nil
}

// parse splits a raw rule and binds its firing closure.
func (s *Scheduler) parse(raw string) (Rule, func(), error) {
	spec, cmd, ok := strings.Cut(raw, "=")
	if !ok {
		return Rule{}, nil, fmt.Errorf("schedule: rule %q needs SPEC=COMMAND", raw)
	}
	spec = strings.TrimSpace(spec)
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	rule := Rule{Spec: spec, Command: cmd}

	switch cmd {
	case "":
		return Rule{}, nil, fmt.Errorf("schedule: rule %q has an empty command", raw)
	case "stop":
		return rule, func() { s.fireStop(rule) }, nil
	case "exit":
		return rule, func() { s.fireExit(rule) }, nil
	}

	fields := strings.Fields(cmd)
	kind, err := modes.ParseKind(fields[0])
	if err != nil {
		return Rule{}, nil, fmt.Errorf("schedule: rule %q: %w", raw, err)
	}
	if kind == modes.KindShuttingDown {
		return Rule{}, nil, fmt.Errorf("schedule: rule %q cannot select %s", raw, kind)
	}
	var color modes.Color
	if len(fields) > 1 {
		color, err = modes.ParseColor(fields[1])
		if err != nil {
			return Rule{}, nil, fmt.Errorf("schedule: rule %q: %w", raw, err)
		}
	}
	if len(fields) > 2 {
		return Rule{}, nil, fmt.Errorf("schedule: rule %q has trailing arguments", raw)
	}

	mode := modes.Mode{Kind: kind, Color: color}
	return rule, func() { s.fireSelect(rule, mode) }, nil
}

// Start arms the timetable. A scheduler with no rules stays off.
func (s *Scheduler) Start() {
	if len(s.rules) == 0 {
		return
	}
	s.cron.Start()
	s.logger.Info("timetable armed", "rules", len(s.rules))
}

// Stop halts the timetable and waits for any firing rule to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Rules returns the parsed timetable.
func (s *Scheduler) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *Scheduler) fireSelect(rule Rule, m modes.Mode) {
	s.logger.Info("scheduled mode change", "spec", rule.Spec, "mode", m.String())
	s.sink.SelectMode(m, command.SourceSchedule)
}

func (s *Scheduler) fireStop(rule Rule) {
	s.logger.Info("scheduled stop", "spec", rule.Spec)
	s.sink.StopAll(command.SourceSchedule)
}

func (s *Scheduler) fireExit(rule Rule) {
	s.logger.Info("scheduled shutdown", "spec", rule.Spec)
	s.sink.Exit(command.SourceSchedule)
}
