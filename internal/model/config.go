package model

// GenerationConfig holds the parameters a conversation is generated with.
// A conversation captures a snapshot of this at creation time; the snapshot
// is immutable once stored.
type GenerationConfig struct {
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"topP"`
	SystemInstruction string  `json:"systemInstruction"`
}

// GenerationConfigPatch is a partial update to a session's generation
// configuration. Nil fields are left unchanged by the merge.
type GenerationConfigPatch struct {
	Model             *string  `json:"model,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"topP,omitempty"`
	SystemInstruction *string  `json:"systemInstruction,omitempty"`
}

// Apply merges the patch into cfg, preserving unset fields.
func (p GenerationConfigPatch) Apply(cfg GenerationConfig) GenerationConfig {
	if p.Model != nil {
		cfg.Model = *p.Model
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		cfg.TopP = *p.TopP
	}
	if p.SystemInstruction != nil {
		cfg.SystemInstruction = *p.SystemInstruction
	}
	return cfg
}
