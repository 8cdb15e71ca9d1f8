package forge

import "strings"

const idSeparator = "-"

// FormatID builds the composite notification id from an account id and a
// forge-native notification id.
func FormatID(accountID, nativeID string) string {
	return accountID + idSeparator + nativeID
}

// SplitID inverts FormatID. Account ids may themselves contain the
// separator, so the id is matched against the known account ids and the
// longest matching prefix wins.
func SplitID(id string, accountIDs []string) (accountID, nativeID string, ok bool) {
	for _, candidate := range accountIDs {
		prefix := candidate + idSeparator
		if !strings.HasPrefix(id, prefix) || len(id) == len(prefix) {
			continue
		}
		if len(candidate) > len(accountID) {
			accountID = candidate
		}
	}
	if accountID == "" {
		return "", "", false
	}
	return accountID, id[len(accountID)+len(idSeparator):], true
}
