package view

import (
	"strconv"
	"strings"
)

// StoreKey encodes a store selection as "franchiseID:storeID".
func StoreKey(franchiseID, storeID int) string {
	return strconv.Itoa(franchiseID) + ":" + strconv.Itoa(storeID)
}

// ParseStoreKey decodes a value produced by StoreKey.
func ParseStoreKey(key string) (franchiseID, storeID int, ok bool) {
	f, s, found := strings.Cut(key, ":")
	if !found {
		return 0, 0, false
	}
	fid, err1 := strconv.Atoi(f)
	sid, err2 := strconv.Atoi(s)
	if err1 != nil || err2 != nil || fid <= 0 || sid <= 0 {
		return 0, 0, false
	}
	return fid, sid, true
}
