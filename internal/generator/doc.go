// Package generator produces a seeded synthetic population of users, KYC
// attempts, card activations, transactions and funnel events, and writes it
// as the raw CSVs the ETL reads.
package generator
