package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/stackplan/wealthsim/internal/calculation"
	"github.com/stackplan/wealthsim/internal/domain"
)

// InputParser handles parsing of plan files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a projection plan from a YAML file
func (ip *InputParser) LoadFromFile(filename string) (*domain.ProjectionInput, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var input domain.ProjectionInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ip.ValidatePlan(&input); err != nil {
		return nil, fmt.Errorf("plan validation failed: %w", err)
	}

	return &input, nil
}

// SaveToFile writes a plan back out as YAML.
func (ip *InputParser) SaveToFile(input *domain.ProjectionInput, filename string) error {
	data, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filename, err)
	}
	return nil
}

// ValidatePlan validates the loaded plan
func (ip *InputParser) ValidatePlan(input *domain.ProjectionInput) error {
	if err := ip.validateSettings(&input.Settings); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}

	accounts := make(map[string]bool, len(input.Accounts))
	for i, a := range input.Accounts {
		if err := ip.validateAccount(&a); err != nil {
			return fmt.Errorf("account %d validation failed: %w", i, err)
		}
		if accounts[a.ID] {
			return fmt.Errorf("duplicate account id %q", a.ID)
		}
		accounts[a.ID] = true
	}

	for i, h := range input.Holdings {
		if err := ip.validateHolding(&h, accounts); err != nil {
			return fmt.Errorf("holding %d (%s) validation failed: %w", i, h.Ticker, err)
		}
	}

	lotIDs := make(map[string]bool, len(input.TaxLots))
	for i, l := range input.TaxLots {
		if err := ip.validateTaxLot(&l); err != nil {
			return fmt.Errorf("tax lot %d validation failed: %w", i, err)
		}
		if l.ID != "" {
			if lotIDs[l.ID] {
				return fmt.Errorf("duplicate tax lot id %q", l.ID)
			}
			lotIDs[l.ID] = true
		}
	}

	for i, l := range input.Liabilities {
		if err := ip.validateLiability(&l); err != nil {
			return fmt.Errorf("liability %d (%s) validation failed: %w", i, l.Name, err)
		}
	}

	for i, l := range input.CollateralizedLoans {
		if err := ip.validateLoan(&l); err != nil {
			return fmt.Errorf("collateralized loan %d (%s) validation failed: %w", i, l.Name, err)
		}
	}
	if input.HypotheticalBTCLoan != nil {
		if err := ip.validateLoan(input.HypotheticalBTCLoan); err != nil {
			return fmt.Errorf("hypothetical loan validation failed: %w", err)
		}
	}

	debtNames := make(map[string]bool, len(input.Liabilities)+len(input.CollateralizedLoans))
	for _, l := range input.Liabilities {
		debtNames[l.Name] = true
	}
	for _, l := range input.CollateralizedLoans {
		debtNames[l.Name] = true
	}
	for i, e := range input.LifeEvents {
		switch e.Kind {
		case domain.LifeEventIncome, domain.LifeEventExpense:
		case domain.LifeEventDebtPayoff:
			if !debtNames[e.Target] {
				return fmt.Errorf("life event %d (%s): debt payoff target %q is not a known liability or loan", i, e.Name, e.Target)
			}
		default:
			return fmt.Errorf("life event %d (%s): kind must be 'income', 'expense' or 'debt_payoff'", i, e.Name)
		}
		if e.Amount.LessThan(decimal.Zero) {
			return fmt.Errorf("life event %d (%s): amount cannot be negative", i, e.Name)
		}
		if e.RepeatYears < 0 {
			return fmt.Errorf("life event %d (%s): repeat years cannot be negative", i, e.Name)
		}
	}
	for i, g := range input.Goals {
		if g.Amount.LessThan(decimal.Zero) {
			return fmt.Errorf("goal %d (%s): amount cannot be negative", i, g.Name)
		}
	}

	return nil
}

// validateSettings validates the scalar projection settings
func (ip *InputParser) validateSettings(s *domain.Settings) error {
	if s.StartYear < 1900 {
		return fmt.Errorf("start year is required")
	}
	if s.CurrentAge <= 0 || s.CurrentAge > 120 {
		return fmt.Errorf("current age must be between 1 and 120")
	}
	if s.EndAge < s.CurrentAge {
		return fmt.Errorf("end age cannot be before current age")
	}
	if s.EndAge > 120 {
		return fmt.Errorf("end age must be at most 120")
	}
	if s.AnnualIncome.LessThan(decimal.Zero) {
		return fmt.Errorf("annual income cannot be negative")
	}
	if s.AnnualSpending.LessThan(decimal.Zero) {
		return fmt.Errorf("annual spending cannot be negative")
	}
	if s.InflationRate.LessThan(decimal.NewFromFloat(-0.10)) {
		return fmt.Errorf("inflation rate cannot be less than -10%% (extreme deflation)")
	}
	if s.Contribution401k.LessThan(decimal.Zero) || s.ContributionIRA.LessThan(decimal.Zero) {
		return fmt.Errorf("contributions cannot be negative")
	}
	if s.BTCPrice.LessThan(decimal.Zero) {
		return fmt.Errorf("btc price cannot be negative")
	}

	switch s.FilingStatus {
	case domain.FilingSingle, domain.FilingMarriedJoint:
	case "":
		return fmt.Errorf("filing status is required ('single' or 'married_joint')")
	default:
		return fmt.Errorf("filing status must be 'single' or 'married_joint'")
	}

	switch s.CostBasisMethod {
	case "", domain.MethodFIFO, domain.MethodLIFO, domain.MethodHIFO, domain.MethodSpecific:
	default:
		return fmt.Errorf("cost basis method must be 'fifo', 'lifo', 'hifo', or 'specific'")
	}

	switch s.WithdrawalStrategy {
	case "", domain.StrategyProportional:
	case domain.StrategyPriority:
		if len(s.WithdrawalPriority) == 0 {
			return fmt.Errorf("withdrawal priority list is required for the 'priority' strategy")
		}
	case domain.StrategyBlended:
		if len(s.BlendWeights) == 0 {
			return fmt.Errorf("blend weights are required for the 'blended' strategy")
		}
	default:
		return fmt.Errorf("withdrawal strategy must be 'proportional', 'priority', or 'blended'")
	}

	for c, w := range s.BlendWeights {
		if w.LessThan(decimal.Zero) {
			return fmt.Errorf("blend weight for %s cannot be negative", c)
		}
	}
	for _, c := range s.WithdrawalPriority {
		if !validAssetClass(c) {
			return fmt.Errorf("unknown asset class %q in withdrawal priority", c)
		}
	}

	for _, r := range []decimal.Decimal{
		s.GrowthRates.BTC, s.GrowthRates.Stocks, s.GrowthRates.Bonds,
		s.GrowthRates.Cash, s.GrowthRates.Other, s.GrowthRates.RealEstate,
	} {
		if r.LessThan(decimal.NewFromInt(-1)) {
			return fmt.Errorf("growth rates cannot be less than -100%%")
		}
	}
	for _, v := range []decimal.Decimal{
		s.Volatility.BTC, s.Volatility.Stocks, s.Volatility.Bonds,
		s.Volatility.Cash, s.Volatility.Other, s.Volatility.RealEstate,
	} {
		if v.LessThan(decimal.Zero) {
			return fmt.Errorf("volatility cannot be negative")
		}
	}
	if !s.BTCShockDegreesOfFreedom.IsZero() && s.BTCShockDegreesOfFreedom.LessThanOrEqual(decimal.NewFromInt(2)) {
		return fmt.Errorf("btc shock degrees of freedom must exceed 2 (finite variance)")
	}

	if s.State != "" && !calculation.KnownState(s.State) {
		// Unknown states resolve to no income tax; surface it as an error so
		// a typo does not silently zero the state bill.
		return fmt.Errorf("unknown state code %q", s.State)
	}

	return nil
}

// validateAccount validates a single account
func (ip *InputParser) validateAccount(a *domain.Account) error {
	if a.ID == "" {
		return fmt.Errorf("account id is required")
	}
	switch a.Treatment {
	case domain.TreatmentTaxable, domain.TreatmentTaxDeferred, domain.TreatmentTaxFree, domain.TreatmentRealEstate:
	default:
		return fmt.Errorf("treatment must be 'taxable', 'tax_deferred', 'tax_free', or 'real_estate'")
	}
	if a.RothContributionBasis.LessThan(decimal.Zero) {
		return fmt.Errorf("roth contribution basis cannot be negative")
	}
	if a.Treatment != domain.TreatmentTaxFree && a.RothContributionBasis.GreaterThan(decimal.Zero) {
		return fmt.Errorf("roth contribution basis only applies to tax-free accounts")
	}
	return nil
}

// validateHolding validates a single holding
func (ip *InputParser) validateHolding(h *domain.Holding, accounts map[string]bool) error {
	if h.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if !accounts[h.AccountID] {
		return fmt.Errorf("unknown account id %q", h.AccountID)
	}
	if !validAssetClass(h.Class) {
		return fmt.Errorf("unknown asset class %q", h.Class)
	}
	if h.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("quantity must be positive")
	}
	if h.Price.LessThan(decimal.Zero) {
		return fmt.Errorf("price cannot be negative")
	}
	if h.DividendYield.LessThan(decimal.Zero) || h.DividendYield.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("dividend yield must be between 0 and 1")
	}
	if h.QualifiedPct.LessThan(decimal.Zero) || h.QualifiedPct.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("qualified percent must be between 0 and 1")
	}
	return nil
}

// validateTaxLot validates a single tax lot
func (ip *InputParser) validateTaxLot(l *domain.TaxLot) error {
	if l.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if l.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("quantity must be positive")
	}
	if l.Remaining.LessThan(decimal.Zero) || l.Remaining.GreaterThan(l.Quantity) {
		return fmt.Errorf("remaining must be between 0 and quantity")
	}
	if l.PricePerUnit.LessThan(decimal.Zero) {
		return fmt.Errorf("price per unit cannot be negative")
	}
	if l.AcquiredAt.IsZero() {
		return fmt.Errorf("acquisition date is required")
	}
	return nil
}

// validateLiability validates a conventional debt
func (ip *InputParser) validateLiability(l *domain.Liability) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Balance.LessThan(decimal.Zero) {
		return fmt.Errorf("balance cannot be negative")
	}
	if l.InterestRate.LessThan(decimal.Zero) {
		return fmt.Errorf("interest rate cannot be negative")
	}
	if l.AnnualPayment.LessThan(decimal.Zero) {
		return fmt.Errorf("annual payment cannot be negative")
	}
	return nil
}

// validateLoan validates a collateralized loan and its LTV threshold ordering
func (ip *InputParser) validateLoan(l *domain.CollateralizedLoan) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Balance.LessThan(decimal.Zero) || l.CollateralBTC.LessThan(decimal.Zero) || l.CollateralBasis.LessThan(decimal.Zero) {
		return fmt.Errorf("balance, collateral, and basis cannot be negative")
	}
	if l.InterestRate.LessThan(decimal.Zero) || l.AnnualPayment.LessThan(decimal.Zero) {
		return fmt.Errorf("interest rate and annual payment cannot be negative")
	}
	if l.LiquidationLTV.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("liquidation LTV must be positive")
	}
	if l.TopUpLTV.GreaterThanOrEqual(l.LiquidationLTV) {
		return fmt.Errorf("top-up trigger must be below the liquidation LTV")
	}
	if l.ReleaseLTV.GreaterThan(decimal.Zero) {
		if l.ReleaseLTV.GreaterThanOrEqual(l.TopUpLTV) && l.TopUpLTV.GreaterThan(decimal.Zero) {
			return fmt.Errorf("release trigger must be below the top-up trigger")
		}
		if l.ReleaseTarget.LessThanOrEqual(l.ReleaseLTV) {
			return fmt.Errorf("release target LTV must be above the release trigger")
		}
	}
	if l.AutoTopUp {
		if l.TopUpTargetLTV.LessThanOrEqual(decimal.Zero) || l.TopUpTargetLTV.GreaterThanOrEqual(l.LiquidationLTV) {
			return fmt.Errorf("top-up target LTV must be positive and below the liquidation LTV")
		}
	}
	return nil
}

func validAssetClass(c domain.AssetClass) bool {
	switch c {
	case domain.AssetBTC, domain.AssetStocks, domain.AssetBonds,
		domain.AssetCash, domain.AssetOther, domain.AssetRealEstate:
		return true
	}
	return false
}

// CreateExamplePlan creates an example plan for a BTC-heavy household
func (ip *InputParser) CreateExamplePlan() *domain.ProjectionInput {
	acquired := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	return &domain.ProjectionInput{
		Accounts: []domain.Account{
			{ID: "brokerage", Name: "Taxable Brokerage", Treatment: domain.TreatmentTaxable},
			{ID: "401k", Name: "Employer 401(k)", Treatment: domain.TreatmentTaxDeferred},
			{ID: "roth", Name: "Roth IRA", Treatment: domain.TreatmentTaxFree, RothContributionBasis: decimal.NewFromInt(60000)},
			{ID: "home", Name: "Primary Residence", Treatment: domain.TreatmentRealEstate},
		},
		Holdings: []domain.Holding{
			{Ticker: "BTC", AccountID: "brokerage", Class: domain.AssetBTC, Quantity: decimal.NewFromFloat(3.5), Price: decimal.NewFromInt(100000)},
			{Ticker: "VTI", AccountID: "brokerage", Class: domain.AssetStocks, Quantity: decimal.NewFromInt(800), Price: decimal.NewFromInt(250), DividendYield: decimal.NewFromFloat(0.015), QualifiedPct: decimal.NewFromFloat(0.95)},
			{Ticker: "BND", AccountID: "brokerage", Class: domain.AssetBonds, Quantity: decimal.NewFromInt(500), Price: decimal.NewFromInt(80), DividendYield: decimal.NewFromFloat(0.04), QualifiedPct: decimal.Zero},
			{Ticker: "CASH", AccountID: "brokerage", Class: domain.AssetCash, Quantity: decimal.NewFromInt(50000), Price: decimal.NewFromInt(1)},
			{Ticker: "VTI", AccountID: "401k", Class: domain.AssetStocks, Quantity: decimal.NewFromInt(1600), Price: decimal.NewFromInt(250)},
			{Ticker: "VTI", AccountID: "roth", Class: domain.AssetStocks, Quantity: decimal.NewFromInt(400), Price: decimal.NewFromInt(250)},
			{Ticker: "HOME", AccountID: "home", Class: domain.AssetRealEstate, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(550000)},
		},
		TaxLots: []domain.TaxLot{
			{ID: "btc-2017", Ticker: "BTC", Quantity: decimal.NewFromInt(2), PricePerUnit: decimal.NewFromInt(4000), AcquiredAt: acquired("2017-09-01"), Source: domain.LotSourcePurchase},
			{ID: "btc-2021", Ticker: "BTC", Quantity: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(45000), AcquiredAt: acquired("2021-02-15"), Source: domain.LotSourcePurchase},
			{ID: "btc-2024", Ticker: "BTC", Quantity: decimal.NewFromFloat(0.5), PricePerUnit: decimal.NewFromInt(70000), AcquiredAt: acquired("2024-11-20"), Source: domain.LotSourcePurchase},
		},
		Liabilities: []domain.Liability{
			{Name: "Mortgage", Balance: decimal.NewFromInt(280000), InterestRate: decimal.NewFromFloat(0.0325), AnnualPayment: decimal.NewFromInt(24000)},
		},
		Goals: []domain.Goal{
			{Name: "College fund", Year: 2036, Amount: decimal.NewFromInt(120000)},
		},
		LifeEvents: []domain.LifeEvent{
			{Name: "Consulting income", Kind: domain.LifeEventIncome, StartYear: 2030, RepeatYears: 4, Amount: decimal.NewFromInt(30000)},
		},
		Settings: domain.Settings{
			StartYear:        2026,
			CurrentAge:       42,
			EndAge:           92,
			RetirementAge:    55,
			AnnualIncome:     decimal.NewFromInt(180000),
			IncomeGrowthRate: decimal.NewFromFloat(0.03),
			AnnualSpending:   decimal.NewFromInt(110000),
			InflationRate:    decimal.NewFromFloat(0.025),
			Contribution401k: decimal.NewFromInt(23500),
			ContributionIRA:  decimal.NewFromInt(7000),
			FilingStatus:     domain.FilingMarriedJoint,
			State:            "CA",
			CostBasisMethod:  domain.MethodHIFO,

			WithdrawalStrategy: domain.StrategyProportional,

			BTCPrice: decimal.NewFromInt(100000),
			GrowthRates: domain.GrowthRates{
				BTC:        decimal.NewFromFloat(0.20),
				Stocks:     decimal.NewFromFloat(0.07),
				Bonds:      decimal.NewFromFloat(0.04),
				Cash:       decimal.NewFromFloat(0.02),
				Other:      decimal.NewFromFloat(0.05),
				RealEstate: decimal.NewFromFloat(0.035),
			},
			Volatility: domain.GrowthRates{
				BTC:        decimal.NewFromFloat(0.60),
				Stocks:     decimal.NewFromFloat(0.16),
				Bonds:      decimal.NewFromFloat(0.06),
				Cash:       decimal.NewFromFloat(0.01),
				Other:      decimal.NewFromFloat(0.18),
				RealEstate: decimal.NewFromFloat(0.08),
			},
			BTCShockDegreesOfFreedom: decimal.NewFromInt(4),
			BTCShockSkew:             decimal.NewFromFloat(0.35),
		},
	}
}
