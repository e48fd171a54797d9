// Package roles implements the declarative role and permission model.
//
// Roles are declared once, in order of privilege, and compiled into an
// immutable Table. Two roles are built in and cannot be redeclared: root
// and admin, which pass every predicate the table constructs. Access rules
// are expressed as Predicate values built from the table (Only, Exclude,
// Permission, AtLeast) and evaluated against the role carried in a
// verified token.
package roles
