// Package graphql serves KPIs, raw line items and question answering over
// GraphQL.
package graphql

import (
	graphqlgo "github.com/graph-gophers/graphql-go"
)

const schemaSDL = `
schema {
	query: Query
}

type Query {
	askQuestion(question: String!): String!
	askQuestionHtml(question: String!): String!
	getFinancials(company: String!, statementType: String!): [FinancialItem!]!
	companyMetrics(company: String!): CompanyMetrics!
}

type FinancialItem {
	line_item: String
	fy_2024: Float
	fy_2023: Float
}

type KPI {
	name: String!
	value: String
	status: String
	description: String!
}

# A set that cannot be computed is null with an error on its own path.
type CompanyMetrics {
	balanceSheet: [KPI!]
	pnl: [KPI!]
	cashflow: [KPI!]
	crossStatement: [KPI!]
}
`

// NewSchema parses the schema against a resolver.
func NewSchema(r *Resolver) (*graphqlgo.Schema, error) {
	return graphqlgo.ParseSchema(schemaSDL, r)
}
