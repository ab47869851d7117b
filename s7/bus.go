package s7

import "context"

// Bus is a connection to a PLC able to read one contiguous element run.
type Bus interface {
	Connect(ctx context.Context) error
	Close() error
	ReadOne(r Request) ([]byte, error)
}

// MultiBus is a Bus that can also read several runs in one request.
// ReadMany fails only on transport errors; per-item failures are reported
// in the returned ItemResults.
type MultiBus interface {
	Bus
	ReadMany(reqs []Request) ([]ItemResult, error)
	TransferBudget() int
}
