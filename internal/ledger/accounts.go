package ledger

// Chart of accounts used by the platform. Codes follow the usual convention:
// 1xxx assets, 2xxx liabilities, 4xxx revenue, 5xxx expenses.
const (
	AccountCashGateway       = "1010" // mobile money collection account
	AccountPremiumPayable    = "2020" // premiums owed to the insurer
	AccountCommissionPayable = "2030" // aggregator commissions owed
	AccountFeeRevenue        = "4010" // platform service fees
	AccountRefundExpense     = "5010" // refunds paid out
)
