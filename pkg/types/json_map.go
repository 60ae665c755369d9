package types

// JSONMap is a loose jsonb payload used for audit metadata on payments.
type JSONMap map[string]any
