package registry

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jxskiss/base62"
	"go.uber.org/zap"

	"launchpad-engine-go/internal/launchpad"
	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/models"
	"launchpad-engine-go/internal/oracle"
)

// Account is the registry's own ledger identity. Sale creators approve this
// account for the project-token reserve before calling CreateSale.
const Account = "launchpad-registry"

// MaxFeeRate is the exclusive upper bound of the fee band: rates must be in
// (0, 50) over launchpad.FeeDenominator, i.e. strictly below 5%.
const MaxFeeRate = 50

// Dependencies are the injected collaborators shared by all sales the
// registry creates.
type Dependencies struct {
	Ledger ledger.TokenLedger
	Oracle oracle.StakeOracle
	Clock  launchpad.Clock
	Logger *zap.Logger
	Sink   models.EventSink
}

// Registry validates sale parameters, enforces one sale per project token and
// owns the global fee configuration. It implements launchpad.FeeProvider, so
// fee changes apply to running sales immediately.
type Registry struct {
	mu sync.Mutex

	owner            string
	withdrawFeeRate  uint64
	launchpadFeeRate uint64

	deps Dependencies

	salesByToken map[string]*launchpad.Engine // project token -> sale
	salesByID    map[string]*launchpad.Engine
	seq          uint64
}

// NewRegistry creates a registry. Both fee rates are validated against the
// band; owner is the only account allowed to change them later and is also
// the recipient of all extracted fees.
func NewRegistry(owner string, withdrawFeeRate, launchpadFeeRate uint64, deps Dependencies) (*Registry, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: registry owner must be set", models.ErrInvalidParameters)
	}
	if deps.Ledger == nil || deps.Oracle == nil || deps.Clock == nil {
		return nil, fmt.Errorf("%w: ledger, oracle and clock are required", models.ErrInvalidParameters)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if err := validateFeeRate("withdraw fee", withdrawFeeRate); err != nil {
		return nil, err
	}
	if err := validateFeeRate("launchpad fee", launchpadFeeRate); err != nil {
		return nil, err
	}

	return &Registry{
		owner:            owner,
		withdrawFeeRate:  withdrawFeeRate,
		launchpadFeeRate: launchpadFeeRate,
		deps:             deps,
		salesByToken:     make(map[string]*launchpad.Engine),
		salesByID:        make(map[string]*launchpad.Engine),
	}, nil
}

// CreateSale validates params, assigns a sale ID, constructs the engine and
// pre-funds its custody account with the full project-token reserve pulled
// from the creator (who must have approved the registry account).
func (r *Registry) CreateSale(creator string, params models.SaleParameters) (*launchpad.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := launchpad.ValidateParameters(params); err != nil {
		return nil, err
	}
	if _, ok := r.salesByToken[params.ProjectToken]; ok {
		return nil, fmt.Errorf("%w: sale already registered for token %s",
			models.ErrDuplicateSale, params.ProjectToken)
	}

	r.seq++
	saleID := saleID(r.seq)

	engine, err := launchpad.NewEngine(saleID, params, r.engineDeps())
	if err != nil {
		return nil, err
	}

	reserve := params.ProjectTokenReserve
	if err := r.deps.Ledger.TransferFrom(params.ProjectToken, Account, creator, engine.Custody(), reserve); err != nil {
		return nil, fmt.Errorf("fund sale reserve: %w", err)
	}

	r.salesByToken[params.ProjectToken] = engine
	r.salesByID[saleID] = engine

	r.deps.Logger.Sugar().Infow("sale created",
		"sale_id", saleID, "project_token", params.ProjectToken,
		"reserve", reserve.String(), "creator", creator)
	if r.deps.Sink != nil {
		r.deps.Sink.Emit(models.SaleEvent{
			Type:   models.EventSaleCreated,
			SaleID: saleID,
			Token:  params.ProjectToken,
			Amount: reserve.String(),
			Time:   r.deps.Clock.Now(),
		})
	}
	return engine, nil
}

// RestoreSale re-registers a sale from a persisted snapshot after a restart.
// The custody account is assumed to still hold the sale's funds; no transfer
// happens here.
func (r *Registry) RestoreSale(snap *models.SaleSnapshot) (*launchpad.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.salesByToken[snap.Params.ProjectToken]; ok {
		return nil, fmt.Errorf("%w: sale already registered for token %s",
			models.ErrDuplicateSale, snap.Params.ProjectToken)
	}

	engine, err := launchpad.NewEngineFromSnapshot(snap, r.engineDeps())
	if err != nil {
		return nil, err
	}

	r.salesByToken[snap.Params.ProjectToken] = engine
	r.salesByID[snap.SaleID] = engine
	r.deps.Logger.Sugar().Infow("sale restored", "sale_id", snap.SaleID)
	return engine, nil
}

// SetWithdrawFeeRate changes the withdrawal fee. Owner only; same band as at
// construction.
func (r *Registry) SetWithdrawFeeRate(caller string, rate uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: only the registry owner may set fees", models.ErrUnauthorized)
	}
	if err := validateFeeRate("withdraw fee", rate); err != nil {
		return err
	}
	r.withdrawFeeRate = rate
	r.deps.Logger.Sugar().Infow("withdraw fee updated", "rate", rate)
	return nil
}

// SetLaunchpadFeeRate changes the proceeds fee. Owner only; same band as at
// construction.
func (r *Registry) SetLaunchpadFeeRate(caller string, rate uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: only the registry owner may set fees", models.ErrUnauthorized)
	}
	if err := validateFeeRate("launchpad fee", rate); err != nil {
		return err
	}
	r.launchpadFeeRate = rate
	r.deps.Logger.Sugar().Infow("launchpad fee updated", "rate", rate)
	return nil
}

// WithdrawFeeRate implements launchpad.FeeProvider.
func (r *Registry) WithdrawFeeRate() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withdrawFeeRate
}

// LaunchpadFeeRate implements launchpad.FeeProvider.
func (r *Registry) LaunchpadFeeRate() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launchpadFeeRate
}

// FeeRecipient implements launchpad.FeeProvider.
func (r *Registry) FeeRecipient() string {
	return r.owner
}

// Owner returns the registry owner account.
func (r *Registry) Owner() string { return r.owner }

// Sale returns the sale registered for a project token.
func (r *Registry) Sale(projectToken string) (*launchpad.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.salesByToken[projectToken]
	return e, ok
}

// SaleByID returns the sale with the given registry-assigned ID.
func (r *Registry) SaleByID(id string) (*launchpad.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.salesByID[id]
	return e, ok
}

// Sales returns all registered sales.
func (r *Registry) Sales() []*launchpad.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*launchpad.Engine, 0, len(r.salesByID))
	for _, e := range r.salesByID {
		out = append(out, e)
	}
	return out
}

func (r *Registry) engineDeps() launchpad.Dependencies {
	return launchpad.Dependencies{
		Ledger: r.deps.Ledger,
		Oracle: r.deps.Oracle,
		Fees:   r,
		Clock:  r.deps.Clock,
		Logger: r.deps.Logger,
		Sink:   r.deps.Sink,
	}
}

func validateFeeRate(name string, rate uint64) error {
	if rate == 0 || rate >= MaxFeeRate {
		return fmt.Errorf("%w: %s rate %d outside (0, %d)",
			models.ErrInvalidParameters, name, rate, MaxFeeRate)
	}
	return nil
}

// saleID encodes the creation sequence number as a compact base62 string.
func saleID(seq uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return base62.EncodeToString(buf)
}
