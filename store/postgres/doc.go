// Package postgres provides pgx-backed implementations of the goGate storage
// collaborators.
//
// [UserStore] implements [goGate.UserProvider] over the users, user_profiles and
// security_questions tables. [AttemptStore] keeps the login attempt budget in the
// users table with single-statement updates. [LoadGrants] reads the profile grant
// table, and [QueryOperations] turns a YAML catalog of named SQL statements into
// dispatchable operations.
//
// Every type accepts a [DB], which *pgxpool.Pool, pgx.Tx and pgxmock pools all
// satisfy.
//
// Expected schema:
//
//	CREATE TABLE users (
//	    id                 TEXT PRIMARY KEY,
//	    username           TEXT NOT NULL UNIQUE,
//	    email              TEXT NOT NULL,
//	    password_hash      TEXT NOT NULL,
//	    attempts_remaining INTEGER,
//	    locked             BOOLEAN NOT NULL DEFAULT FALSE
//	);
//	CREATE TABLE user_profiles (
//	    user_id TEXT NOT NULL REFERENCES users(id),
//	    profile TEXT NOT NULL,
//	    PRIMARY KEY (user_id, profile)
//	);
//	CREATE TABLE security_questions (
//	    id          TEXT PRIMARY KEY,
//	    user_id     TEXT NOT NULL REFERENCES users(id),
//	    question    TEXT NOT NULL,
//	    answer_hash TEXT NOT NULL
//	);
//	CREATE TABLE profile_grants (
//	    profile TEXT NOT NULL,
//	    area    TEXT NOT NULL,
//	    object  TEXT NOT NULL,
//	    method  TEXT NOT NULL,
//	    PRIMARY KEY (profile, area, object, method)
//	);
package postgres
