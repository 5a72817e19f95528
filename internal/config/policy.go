package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SubscriptionPolicy carries the tunable subscription rules.
type SubscriptionPolicy struct {
	TrialDays        int      `mapstructure:"trialDays"`
	ExpiringSoonDays int      `mapstructure:"expiringSoonDays"`
	TrialBedLimit    int      `mapstructure:"trialBedLimit"`
	TrialBranchLimit int      `mapstructure:"trialBranchLimit"`
	TrialModules     []string `mapstructure:"trialModules"`
}

func DefaultSubscriptionPolicy() SubscriptionPolicy {
	return SubscriptionPolicy{
		TrialDays:        14,
		ExpiringSoonDays: 2,
		TrialBedLimit:    10,
		TrialBranchLimit: 1,
	}
}

// TrialModuleEnabled reports whether a module is available during a plan-less trial.
func (p SubscriptionPolicy) TrialModuleEnabled(name string) bool {
	name = strings.TrimSpace(name)
	for _, m := range p.TrialModules {
		if strings.EqualFold(strings.TrimSpace(m), name) {
			return true
		}
	}
	return false
}

// PolicyProvider exposes the current policy snapshot.
type PolicyProvider interface {
	Get() SubscriptionPolicy
}

type PolicyHolder struct {
	current atomic.Value // holds SubscriptionPolicy
}

// StaticPolicy returns a holder that never reloads.
func StaticPolicy(p SubscriptionPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	log = log.Named("config.policy")
	v := viper.New()

	if cfg.PolicyPath != "" {
		v.SetConfigFile(cfg.PolicyPath)
	} else {
		v.SetConfigName("policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/pgstay")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PGSTAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSubscriptionPolicy()
	v.SetDefault("subscription.trialDays", defaults.TrialDays)
	v.SetDefault("subscription.expiringSoonDays", defaults.ExpiringSoonDays)
	v.SetDefault("subscription.trialBedLimit", defaults.TrialBedLimit)
	v.SetDefault("subscription.trialBranchLimit", defaults.TrialBranchLimit)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	policy, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := StaticPolicy(policy)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() SubscriptionPolicy {
	return h.current.Load().(SubscriptionPolicy)
}

// decodePolicy unmarshals through AllSettings so file values are merged with defaults.
func decodePolicy(v *viper.Viper) (SubscriptionPolicy, error) {
	var wrapper struct {
		Subscription SubscriptionPolicy `mapstructure:"subscription"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return SubscriptionPolicy{}, err
	}
	return wrapper.Subscription, nil
}

func validatePolicy(p SubscriptionPolicy) error {
	if p.TrialDays <= 0 {
		return errors.New("subscription.trialDays must be positive")
	}
	if p.ExpiringSoonDays < 0 {
		return errors.New("subscription.expiringSoonDays cannot be negative")
	}
	if p.TrialBedLimit < 0 || p.TrialBranchLimit < 0 {
		return errors.New("subscription trial limits cannot be negative")
	}
	return nil
}
