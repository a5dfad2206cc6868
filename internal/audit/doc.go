// Package audit records and queries the audit trail of administrative
// activity: logins, account changes and lighting configuration updates.
//
// user_id is deliberately not a foreign key, so entries outlive the
// accounts that produced them. The acting username is stored alongside.
package audit
