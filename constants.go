package veostub

// Result/status sentinels returned across the public API, per spec §6/§8.
const (
	// CommandOK is returned by CallWaitResult/CallPeekResult when the
	// result word was delivered successfully.
	CommandOK = 0

	// CommandError is returned when the context's communicator has
	// exited (peer loss) before the result could be delivered.
	CommandError = -1

	// CommandUnfinished is returned by CallPeekResult when the result
	// has not arrived, whether or not the context is still running.
	CommandUnfinished = -2
)
