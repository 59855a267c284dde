package turn

import "log/slog"

// Registry holds the capability adapters that survived startup validation.
// It is built once at process start, is immutable afterwards, and is read
// concurrently by every turn without locking.
type Registry struct {
	safety      *SafetyAdapter
	retrieval   *RetrievalAdapter
	persistence *PersistenceAdapter
}

// BuildRegistry validates each candidate adapter and registers the survivors.
// A nil candidate means the capability was not configured at all. A
// validation failure forces that capability to disabled with a warning; it
// never crashes the process.
func BuildRegistry(logger *slog.Logger, safety *SafetyAdapter, retrieval *RetrievalAdapter, persistence *PersistenceAdapter) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	registry := &Registry{}
	if safety != nil {
		if err := safety.Validate(); err != nil {
			logger.Warn("capability disabled by config validation",
				"capability", string(KindSafety), "error", err)
		} else {
			registry.safety = safety
		}
	}
	if retrieval != nil {
		if err := retrieval.Validate(); err != nil {
			logger.Warn("capability disabled by config validation",
				"capability", string(KindRetrieval), "error", err)
		} else {
			registry.retrieval = retrieval
		}
	}
	if persistence != nil {
		if err := persistence.Validate(); err != nil {
			logger.Warn("capability disabled by config validation",
				"capability", string(KindPersistence), "error", err)
		} else {
			registry.persistence = persistence
		}
	}
	return registry
}

// Enabled reports whether the capability was configured and validated.
// Disabled capabilities are never invoked during a turn.
func (r *Registry) Enabled(kind Kind) bool {
	switch kind {
	case KindSafety:
		return r.safety != nil
	case KindRetrieval:
		return r.retrieval != nil
	case KindPersistence:
		return r.persistence != nil
	default:
		return false
	}
}

// Get returns the adapter for an enabled kind. Callers must check Enabled
// first; Get returns nil for disabled kinds.
func (r *Registry) Get(kind Kind) Adapter {
	switch kind {
	case KindSafety:
		if r.safety == nil {
			return nil
		}
		return r.safety
	case KindRetrieval:
		if r.retrieval == nil {
			return nil
		}
		return r.retrieval
	case KindPersistence:
		if r.persistence == nil {
			return nil
		}
		return r.persistence
	default:
		return nil
	}
}

// Safety returns the typed safety adapter; nil when disabled.
func (r *Registry) Safety() *SafetyAdapter {
	return r.safety
}

// Retrieval returns the typed retrieval adapter; nil when disabled.
func (r *Registry) Retrieval() *RetrievalAdapter {
	return r.retrieval
}

// Persistence returns the typed persistence adapter; nil when disabled.
func (r *Registry) Persistence() *PersistenceAdapter {
	return r.persistence
}

// EnabledKinds returns the enabled capabilities in priority order.
func (r *Registry) EnabledKinds() []Kind {
	kinds := make([]Kind, 0, 3)
	for _, kind := range Kinds() {
		if r.Enabled(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
