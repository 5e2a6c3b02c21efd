package domain

type SortDir int8

const (
	SortDirAsc  SortDir = 1
	SortDirDesc SortDir = -1
)

// Table names a mongo collection.
type Table string

const (
	TableListings Table = "listings"
	TableAuctions Table = "auctions"
	TableBids     Table = "bids"
	TableReviews  Table = "reviews"
)
