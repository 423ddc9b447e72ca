// Package models contains the GORM persistence models of the reconciliation
// tables. Domain types stay free of ORM tags; each model converts to and from
// its aggregate with ToDomain / FromDomain.
package models
