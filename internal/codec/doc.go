// Package codec projects nested game-data records onto flat CSV tables and back.
//
// The package is schema driven. [SchemaOf] inspects a record type once and
// classifies every exported field into a closed set of kinds ([FieldKind]):
// primitives, nullable primitives, enumerations, foreign keys, nested records
// and collections. All other operations dispatch on that classification instead
// of querying types at runtime.
//
// # Export
//
//	rows := make([]codec.Row, len(records))
//	for i, r := range records {
//	    rows[i] = codec.Flatten(r)
//	}
//	header := codec.TableHeader(reflect.TypeFor[model.Monster](), rows)
//	text := codec.WriteTable(header, rows)
//
// # Import
//
//	header, records := codec.ParseTable(text)
//	for _, raw := range records {
//	    id, ok := codec.RowID(raw)
//	    if !ok {
//	        continue // rows without a numeric ID are skipped
//	    }
//	    report := codec.Unflatten(lookup(id), raw)
//	    ...
//	}
//
// # Column paths
//
// Columns are dot-joined paths: "HP", "BaseStats.ElementalResistances.Fire",
// "Tags.0", "Auras.3.Duration". Columns are ordered by [CompareColumns], which
// follows the declared field order at every nesting level and compares list
// indices numerically. The identity fields ID, Name and State always lead.
//
// # Failure policy
//
// Import is best effort per cell. A value that cannot be parsed into its
// target field leaves that field unchanged; the [Report] returned by
// [Unflatten] lists such cells so callers can log them.
package codec
