package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Committer --dir ../bidding --output bidding --outpkg biddingmock --filename committer_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Store --dir ../domain/ledger --output domain/ledger --outpkg ledgermock --filename store_mock.go
