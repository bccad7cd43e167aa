package events

// Topics emitted by the staging core.
const (
	// TopicTerminalValidated fires when a workstation passes registry validation.
	TopicTerminalValidated = "terminal.validated"
	// TopicTransactionCommitted fires when a staged ledger becomes a permanent transaction.
	TopicTransactionCommitted = "transaction.committed"
	// TopicStageCleared fires when a ledger is emptied, by commit or explicit clear.
	TopicStageCleared = "stage.cleared"
)
