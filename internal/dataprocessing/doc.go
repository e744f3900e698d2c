// Package dataprocessing loads the raw funnel sources and builds the three
// warehouse tables from them.
//
// # Architecture
//
// The package has two halves:
//
// 1. Loader: reads users, kyc, cards, transactions and funnel_events CSVs from
// the raw directory, locating columns by header name and parsing timestamps
// into timezone-naive UTC values.
// 2. Builders: BuildDimUsers, BuildFctTransactions and BuildFctFunnel are pure
// functions over the loaded rows. They share no state, so the two fact builders
// may run concurrently.
//
// # Usage
//
//	raw, err := dataprocessing.NewLoader(paths, logger).Load(ctx)
//	if err != nil {
//	    return err
//	}
//	dim, err := dataprocessing.BuildDimUsers(raw.Users, raw.KYC, raw.Cards, raw.Transactions)
//
// # Null Handling
//
// An empty timestamp cell is the zero time.Time on the raw rows and a nil
// pointer on the output rows. Users without KYC, card or transaction rows keep
// their dim_users row with null aggregates and false presence flags.
//
// # Error Handling
//
// Load fails with a MISSING_SOURCE error for an absent file and a SCHEMA error
// for a missing column or unparseable user_id/timestamp. The builders fail with
// a TYPE_COERCION error when amount_eur or step_order is not numeric.
package dataprocessing
