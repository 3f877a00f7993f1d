package record

import "strings"

// UniqueIdentifier returns "{database}/{uri}_{channel}". The database prefix
// is present only when the record carries a database field and the channel
// suffix only when it carries a channel field.
func UniqueIdentifier(r *Record) (string, error) {
	var b strings.Builder

	if r.Has(FieldDatabase) {
		database, err := r.String(FieldDatabase)
		if err != nil {
			return "", err
		}
		b.WriteString(database)
		b.WriteByte('/')
	}

	uri, err := r.String(FieldURI)
	if err != nil {
		return "", err
	}
	b.WriteString(uri)

	if r.Has(FieldChannel) {
		channel, err := r.String(FieldChannel)
		if err != nil {
			return "", err
		}
		b.WriteByte('_')
		b.WriteString(channel)
	}

	return b.String(), nil
}

// LabelIdentifier scopes a database-internal label to the record's database
// as "database|label".
func LabelIdentifier(label string, r *Record) (string, error) {
	database, err := r.String(FieldDatabase)
	if err != nil {
		return "", err
	}
	return database + "|" + label, nil
}
