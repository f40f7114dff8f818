package launchpad

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"launchpad-engine-go/internal/ledger"
	"launchpad-engine-go/internal/models"
	"launchpad-engine-go/internal/oracle"
)

// Phase is the sale lifecycle stage. It is never stored; it is derived from
// the clock against the sale window on every call.
type Phase int

const (
	PhasePending Phase = iota
	PhaseActive
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseActive:
		return "active"
	default:
		return "closed"
	}
}

// FeeDenominator is the fixed denominator for fee rates: a rate of 25 is 2.5%.
const FeeDenominator = 1000

// FeeProvider supplies the live fee configuration. The registry implements
// it, so rate changes apply to running sales without engine involvement.
type FeeProvider interface {
	WithdrawFeeRate() uint64
	LaunchpadFeeRate() uint64
	FeeRecipient() string
}

// Dependencies are the injected collaborators of an Engine. Ledger, Oracle,
// Fees and Clock are required; Logger defaults to a no-op and Sink may be nil.
type Dependencies struct {
	Ledger ledger.TokenLedger
	Oracle oracle.StakeOracle
	Fees   FeeProvider
	Clock  Clock
	Logger *zap.Logger
	Sink   models.EventSink
}

// Engine is the sale state machine and accounting core. All state mutations
// happen under a single mutex, reproducing the serialized execution model the
// accounting invariants assume. The engine holds only accounting deltas; the
// ledger custodies the actual tokens under the engine's custody account.
type Engine struct {
	mu sync.Mutex

	saleID  string
	custody string
	params  models.SaleParameters

	ledger ledger.TokenLedger
	oracle oracle.StakeOracle
	fees   FeeProvider
	clock  Clock
	logger *zap.Logger
	sink   models.EventSink

	totalContributed     *big.Int
	accounts             map[string]*models.SaleAccount
	hasWithdrawnProceeds bool
	hasWithdrawnUnsold   bool
}

// NewEngine validates the parameters and creates a sale engine. The engine's
// custody account on the ledger is derived from the sale ID; the caller (the
// registry) is responsible for pre-funding it with the project-token reserve.
func NewEngine(saleID string, params models.SaleParameters, deps Dependencies) (*Engine, error) {
	if err := ValidateParameters(params); err != nil {
		return nil, err
	}
	if saleID == "" {
		return nil, fmt.Errorf("%w: sale id must be set", models.ErrInvalidParameters)
	}
	if deps.Ledger == nil || deps.Oracle == nil || deps.Fees == nil || deps.Clock == nil {
		return nil, fmt.Errorf("%w: ledger, oracle, fees and clock are required", models.ErrInvalidParameters)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Engine{
		saleID:           saleID,
		custody:          CustodyAccount(saleID),
		params:           params.Copy(),
		ledger:           deps.Ledger,
		oracle:           deps.Oracle,
		fees:             deps.Fees,
		clock:            deps.Clock,
		logger:           deps.Logger,
		sink:             deps.Sink,
		totalContributed: new(big.Int),
		accounts:         make(map[string]*models.SaleAccount),
	}, nil
}

// CustodyAccount returns the ledger account a sale engine custodies funds
// under for a given sale ID.
func CustodyAccount(saleID string) string {
	return "sale:" + saleID
}

// Buy admits a contribution of amount sale-tokens from account. The buyer
// must have approved the custody account for at least amount beforehand.
// All preconditions are checked before the ledger moves anything, so a
// failed call leaves engine and ledger state unchanged.
func (e *Engine) Buy(account string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if phase := e.phaseAt(now); phase != PhaseActive {
		return fmt.Errorf("%w: buy while sale is %s", models.ErrSaleNotActive, phase)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: buy amount must be positive", models.ErrInvalidAmount)
	}
	if new(big.Int).Add(e.totalContributed, amount).Cmp(e.params.MaxSaleTokenReserve) > 0 {
		return fmt.Errorf("%w: %s contributed, %s requested, hardcap %s",
			models.ErrHardcapReached, e.totalContributed, amount, e.params.MaxSaleTokenReserve)
	}

	acct, exists := e.accounts[account]
	if !exists {
		acct = models.NewSaleAccount()
	}

	staked := acct.StakedAtSnapshot
	if !acct.Snapshotted {
		var err error
		staked, err = e.classify(account, now)
		if err != nil {
			return err
		}
	}

	cap := e.userCap(staked)
	if new(big.Int).Add(acct.NetContribution, amount).Cmp(cap) > 0 {
		return fmt.Errorf("%w: account %s at %s, +%s exceeds cap %s",
			models.ErrUserCapReached, account, acct.NetContribution, amount, cap)
	}

	if err := e.ledger.TransferFrom(e.params.SaleToken, e.custody, account, e.custody, amount); err != nil {
		return fmt.Errorf("pull contribution: %w", err)
	}

	// The classification freeze and the account record itself only persist
	// once the transfer has succeeded.
	if !acct.Snapshotted {
		acct.Snapshotted = true
		acct.StakedAtSnapshot = staked
	}
	if !exists {
		e.accounts[account] = acct
	}
	acct.NetContribution.Add(acct.NetContribution, amount)
	e.totalContributed.Add(e.totalContributed, amount)

	e.logger.Sugar().Infow("contribution accepted",
		"sale_id", e.saleID, "account", account, "amount", amount.String(),
		"total_contributed", e.totalContributed.String())
	e.emit(models.SaleEvent{
		Type:    models.EventTokensPurchased,
		SaleID:  e.saleID,
		Account: account,
		Token:   e.params.SaleToken,
		Amount:  amount.String(),
		Time:    now,
	})
	return nil
}

// Withdraw returns part of a contribution to the buyer while the sale is
// still active. The withdrawal fee is taken out of the returned amount; the
// account and the sale total are both reduced by the full amount.
func (e *Engine) Withdraw(account string, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if phase := e.phaseAt(now); phase != PhaseActive {
		return fmt.Errorf("%w: withdraw while sale is %s", models.ErrSaleNotActive, phase)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdraw amount must be positive", models.ErrInvalidAmount)
	}

	acct, ok := e.accounts[account]
	if !ok || acct.NetContribution.Cmp(amount) < 0 {
		return fmt.Errorf("%w: withdraw %s exceeds contribution", models.ErrInsufficientBalance, amount)
	}

	fee := mulDiv(amount, e.fees.WithdrawFeeRate(), FeeDenominator)
	refund := new(big.Int).Sub(amount, fee)

	// Custody always holds at least totalContributed of the sale token, so
	// the second transfer cannot fail once the first succeeded.
	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.SaleToken, e.custody, e.fees.FeeRecipient(), fee); err != nil {
			return fmt.Errorf("route withdraw fee: %w", err)
		}
	}
	if err := e.ledger.Transfer(e.params.SaleToken, e.custody, account, refund); err != nil {
		return fmt.Errorf("return contribution: %w", err)
	}

	acct.NetContribution.Sub(acct.NetContribution, amount)
	e.totalContributed.Sub(e.totalContributed, amount)

	e.logger.Sugar().Infow("contribution withdrawn",
		"sale_id", e.saleID, "account", account, "amount", amount.String(),
		"fee", fee.String(), "total_contributed", e.totalContributed.String())
	e.emit(models.SaleEvent{
		Type:    models.EventContributionWithdrawn,
		SaleID:  e.saleID,
		Account: account,
		Token:   e.params.SaleToken,
		Amount:  amount.String(),
		Time:    now,
	})
	return nil
}

// WithdrawSaleTokens routes the sale proceeds after close: the launchpad fee
// to the fee recipient, the rest to the project treasury. Fires at most once.
func (e *Engine) WithdrawSaleTokens(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if err := e.requireSettlement(caller, now); err != nil {
		return err
	}
	if e.hasWithdrawnProceeds {
		return fmt.Errorf("%w: sale proceeds already withdrawn", models.ErrAlreadySettled)
	}

	fee := mulDiv(e.totalContributed, e.fees.LaunchpadFeeRate(), FeeDenominator)
	proceeds := new(big.Int).Sub(e.totalContributed, fee)

	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.SaleToken, e.custody, e.fees.FeeRecipient(), fee); err != nil {
			return fmt.Errorf("route launchpad fee: %w", err)
		}
	}
	if proceeds.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.SaleToken, e.custody, e.params.ProjectTreasury, proceeds); err != nil {
			return fmt.Errorf("route sale proceeds: %w", err)
		}
	}
	e.hasWithdrawnProceeds = true

	e.logger.Sugar().Infow("sale proceeds withdrawn",
		"sale_id", e.saleID, "proceeds", proceeds.String(), "fee", fee.String())
	e.emit(models.SaleEvent{
		Type:   models.EventSaleTokensWithdrawn,
		SaleID: e.saleID,
		Token:  e.params.SaleToken,
		Amount: proceeds.String(),
		Time:   now,
	})
	return nil
}

// WithdrawUnsoldProjectTokens returns the unsold share of the project-token
// reserve to the treasury after close. Fires at most once.
func (e *Engine) WithdrawUnsoldProjectTokens(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if err := e.requireSettlement(caller, now); err != nil {
		return err
	}
	if e.hasWithdrawnUnsold {
		return fmt.Errorf("%w: unsold inventory already withdrawn", models.ErrAlreadySettled)
	}

	// sold = reserve * contributed / hardcap, divide last so truncation only
	// ever leaves dust in custody, never over-returns.
	sold := new(big.Int).Mul(e.params.ProjectTokenReserve, e.totalContributed)
	sold.Div(sold, e.params.MaxSaleTokenReserve)
	unsold := new(big.Int).Sub(e.params.ProjectTokenReserve, sold)

	if unsold.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.ProjectToken, e.custody, e.params.ProjectTreasury, unsold); err != nil {
			return fmt.Errorf("return unsold inventory: %w", err)
		}
	}
	e.hasWithdrawnUnsold = true

	e.logger.Sugar().Infow("unsold inventory returned",
		"sale_id", e.saleID, "unsold", unsold.String())
	e.emit(models.SaleEvent{
		Type:   models.EventUnsoldTokensWithdrawn,
		SaleID: e.saleID,
		Token:  e.params.ProjectToken,
		Amount: unsold.String(),
		Time:   now,
	})
	return nil
}

// CalculateUserClaim reports (claimable now, total entitlement) for account.
// Both are zero until the sale closes; afterwards the entitlement is the
// account's proportional share of the reserve and the claimable part follows
// the vesting schedule.
func (e *Engine) CalculateUserClaim(account string) (*big.Int, *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.userClaimAt(e.accounts[account], e.clock.Now())
}

// Claim releases the account's currently claimable project tokens.
func (e *Engine) Claim(account string) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if e.phaseAt(now) != PhaseClosed {
		return nil, fmt.Errorf("%w: claim before sale end", models.ErrSaleStillActive)
	}

	acct := e.accounts[account]
	claimable, _ := e.userClaimAt(acct, now)
	if claimable.Sign() <= 0 {
		return nil, fmt.Errorf("%w: account %s has no vested amount", models.ErrNothingToClaim, account)
	}

	if err := e.ledger.Transfer(e.params.ProjectToken, e.custody, account, claimable); err != nil {
		return nil, fmt.Errorf("release claim: %w", err)
	}
	acct.ClaimedAmount.Add(acct.ClaimedAmount, claimable)

	e.logger.Sugar().Infow("claim released",
		"sale_id", e.saleID, "account", account, "amount", claimable.String())
	e.emit(models.SaleEvent{
		Type:    models.EventTokensClaimed,
		SaleID:  e.saleID,
		Account: account,
		Token:   e.params.ProjectToken,
		Amount:  claimable.String(),
		Time:    now,
	})
	return new(big.Int).Set(claimable), nil
}

// userClaimAt computes (claimable, entitlement) under the engine lock.
// acct may be nil (unknown account).
func (e *Engine) userClaimAt(acct *models.SaleAccount, now time.Time) (*big.Int, *big.Int) {
	if acct == nil || e.phaseAt(now) != PhaseClosed {
		return new(big.Int), new(big.Int)
	}

	// entitlement = reserve * contribution / hardcap, divide last.
	entitlement := new(big.Int).Mul(e.params.ProjectTokenReserve, acct.NetContribution)
	entitlement.Div(entitlement, e.params.MaxSaleTokenReserve)

	unlocked := entitlement
	if e.params.VestingDays > 0 {
		elapsedDays := uint64(now.Sub(e.params.EndTime) / (24 * time.Hour))
		if elapsedDays > e.params.VestingDays {
			elapsedDays = e.params.VestingDays
		}
		unlocked = new(big.Int).Mul(entitlement, new(big.Int).SetUint64(elapsedDays))
		unlocked.Div(unlocked, new(big.Int).SetUint64(e.params.VestingDays))
	}

	claimable := new(big.Int).Sub(unlocked, acct.ClaimedAmount)
	if claimable.Sign() < 0 {
		claimable.SetInt64(0)
	}
	return claimable, entitlement
}

func (e *Engine) requireSettlement(caller string, now time.Time) error {
	if e.phaseAt(now) != PhaseClosed {
		return fmt.Errorf("%w: settlement before sale end", models.ErrSaleStillActive)
	}
	if caller != e.params.ProjectTreasury && caller != e.fees.FeeRecipient() {
		return fmt.Errorf("%w: %s may not settle this sale", models.ErrUnauthorized, caller)
	}
	return nil
}

func (e *Engine) phaseAt(now time.Time) Phase {
	if now.Before(e.params.StartTime) {
		return PhasePending
	}
	if now.Before(e.params.EndTime) {
		return PhaseActive
	}
	return PhaseClosed
}

func (e *Engine) userCap(staked bool) *big.Int {
	if staked {
		return e.params.StakedUserCap
	}
	return e.params.UnstakedUserCap
}

func (e *Engine) emit(event models.SaleEvent) {
	if e.sink != nil {
		e.sink.Emit(event)
	}
}

// mulDiv returns v * rate / den, divide last.
func mulDiv(v *big.Int, rate, den uint64) *big.Int {
	out := new(big.Int).Mul(v, new(big.Int).SetUint64(rate))
	return out.Div(out, new(big.Int).SetUint64(den))
}

// --- read-only accessors ---

// SaleID returns the registry-assigned sale identifier.
func (e *Engine) SaleID() string { return e.saleID }

// Custody returns the engine's ledger custody account.
func (e *Engine) Custody() string { return e.custody }

// Params returns a deep copy of the sale parameters.
func (e *Engine) Params() models.SaleParameters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Copy()
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phaseAt(e.clock.Now())
}

// TotalContributed returns the current net contribution total.
func (e *Engine) TotalContributed() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.totalContributed)
}

// NetContribution returns the account's net contribution (zero if unknown).
func (e *Engine) NetContribution(account string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acct, ok := e.accounts[account]; ok {
		return new(big.Int).Set(acct.NetContribution)
	}
	return new(big.Int)
}

// ClaimedAmount returns the project tokens already released to account.
func (e *Engine) ClaimedAmount(account string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acct, ok := e.accounts[account]; ok {
		return new(big.Int).Set(acct.ClaimedAmount)
	}
	return new(big.Int)
}

// HasWithdrawnProceeds reports whether the proceeds settlement has fired.
func (e *Engine) HasWithdrawnProceeds() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasWithdrawnProceeds
}

// HasWithdrawnUnsold reports whether the unsold-inventory settlement has fired.
func (e *Engine) HasWithdrawnUnsold() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasWithdrawnUnsold
}
