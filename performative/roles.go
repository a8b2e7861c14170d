package performative

// Role names which end of a link a party plays. It is carried on the
// wire as a boolean: false is sender, true is receiver.
type Role bool

const (
	RoleSender   Role = false
	RoleReceiver Role = true
)

// SenderSettleMode governs whether the sender retains a delivery until
// settled by the receiver.
type SenderSettleMode uint8

const (
	SenderSettleModeUnsettled SenderSettleMode = 0
	SenderSettleModeSettled   SenderSettleMode = 1
	SenderSettleModeMixed     SenderSettleMode = 2
)

// ReceiverSettleMode governs whether the receiver may settle on its own
// or must wait for the sender's disposition.
type ReceiverSettleMode uint8

const (
	ReceiverSettleModeFirst  ReceiverSettleMode = 0
	ReceiverSettleModeSecond ReceiverSettleMode = 1
)
