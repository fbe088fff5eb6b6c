package models

// RecentInteraction 合约的一条普通交易，带可读的函数标签
type RecentInteraction struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	Input           string `json:"input"`
	MethodID        string `json:"methodId"`
	FunctionName    string `json:"functionName"`
	IsError         string `json:"isError"`
	GasUsed         string `json:"gasUsed"`
}

// MintBucket 铸造数量分布中的一档
type MintBucket struct {
	Amount string `json:"amount"`
	Count  int    `json:"count"`
	Total  string `json:"total"`
}
