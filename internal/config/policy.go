package config

import (
	"errors"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LifecyclePolicy tunes the calendar offsets the scheduler drives events by.
// All day values count calendar days relative to the event's birthday date.
type LifecyclePolicy struct {
	// AnnounceLeadDays is how far ahead of a birthday the event is created
	// and announced to the team.
	AnnounceLeadDays int `mapstructure:"announceLeadDays"`
	// CollectingGrace is how long after the announcement the event moves to
	// collecting regardless of participant count. Zero means the next tick.
	CollectingGrace time.Duration `mapstructure:"collectingGrace"`
	// ReminderOffsets are days-before-birthday at which pending participants
	// get a nudge.
	ReminderOffsets []int `mapstructure:"reminderOffsets"`
	// OrganizerFollowupDays is how many days after finalization the organizer
	// gets a follow-up reminder.
	OrganizerFollowupDays int `mapstructure:"organizerFollowupDays"`
	// OverdueCancelDays is how many days past the birthday an event that
	// never finalized is auto-cancelled.
	OverdueCancelDays int `mapstructure:"overdueCancelDays"`
}

func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		AnnounceLeadDays:      14,
		CollectingGrace:       0,
		ReminderOffsets:       []int{3, 1},
		OrganizerFollowupDays: 7,
		OverdueCancelDays:     1,
	}
}

// PolicyHolder hands out the current lifecycle policy and hot-reloads it
// when the config file changes. The scheduler reads it every tick.
type PolicyHolder struct {
	current atomic.Value // holds LifecyclePolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("lifecycle")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kado/config")
	v.AddConfigPath("/etc/kado")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KADO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLifecyclePolicy()
	v.SetDefault("lifecycle.announceLeadDays", defaults.AnnounceLeadDays)
	v.SetDefault("lifecycle.collectingGrace", defaults.CollectingGrace)
	v.SetDefault("lifecycle.reminderOffsets", defaults.ReminderOffsets)
	v.SetDefault("lifecycle.organizerFollowupDays", defaults.OrganizerFollowupDays)
	v.SetDefault("lifecycle.overdueCancelDays", defaults.OverdueCancelDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy LifecyclePolicy
	if err := v.UnmarshalKey("lifecycle", &policy); err != nil {
		return nil, err
	}
	if err := validateLifecyclePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(normalizePolicy(policy))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LifecyclePolicy
		if err := v.UnmarshalKey("lifecycle", &updated); err != nil {
			log.Printf("[lifecycle-config] reload failed: %v", err)
			return
		}
		if err := validateLifecyclePolicy(updated); err != nil {
			log.Printf("[lifecycle-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(normalizePolicy(updated))
		log.Printf("[lifecycle-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() LifecyclePolicy {
	return h.current.Load().(LifecyclePolicy)
}

// NewStaticPolicyHolder wraps a fixed policy, for tests.
func NewStaticPolicyHolder(policy LifecyclePolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(normalizePolicy(policy))
	return holder
}

func validateLifecyclePolicy(policy LifecyclePolicy) error {
	if policy.AnnounceLeadDays <= 0 {
		return errors.New("lifecycle.announceLeadDays must be positive")
	}
	if policy.CollectingGrace < 0 {
		return errors.New("lifecycle.collectingGrace cannot be negative")
	}
	for _, offset := range policy.ReminderOffsets {
		if offset <= 0 || offset >= policy.AnnounceLeadDays {
			return errors.New("lifecycle.reminderOffsets must fall inside the announce window")
		}
	}
	if policy.OrganizerFollowupDays <= 0 {
		return errors.New("lifecycle.organizerFollowupDays must be positive")
	}
	if policy.OverdueCancelDays < 0 {
		return errors.New("lifecycle.overdueCancelDays cannot be negative")
	}
	return nil
}

func normalizePolicy(policy LifecyclePolicy) LifecyclePolicy {
	offsets := append([]int(nil), policy.ReminderOffsets...)
	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))
	policy.ReminderOffsets = offsets
	return policy
}
