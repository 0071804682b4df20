package iso20022

import "encoding/xml"

// The structs below cover the subset of each message definition the adapter
// generates. Element names follow the ISO 20022 XML tags.

type amount struct {
	Currency string `xml:"Ccy,attr"`
	Value    string `xml:",chardata"`
}

type finInstnID struct {
	BICFI string `xml:"FinInstnId>BICFI,omitempty"`
}

type accountID struct {
	Other string `xml:"Id>Othr>Id"`
}

type groupHeader struct {
	MsgID          string `xml:"MsgId"`
	CreatedAt      string `xml:"CreDtTm"`
	NbOfTxs        int    `xml:"NbOfTxs,omitempty"`
	SettlementMthd string `xml:"SttlmInf>SttlmMtd,omitempty"`
}

// pacs.008

type creditTransferDocument struct {
	XMLName xml.Name             `xml:"Document"`
	Xmlns   string               `xml:"xmlns,attr"`
	Body    creditTransferHeader `xml:"FIToFICstmrCdtTrf"`
}

type creditTransferHeader struct {
	GroupHeader groupHeader         `xml:"GrpHdr"`
	Tx          creditTransferTxInf `xml:"CdtTrfTxInf"`
}

type creditTransferTxInf struct {
	InstrID        string     `xml:"PmtId>InstrId"`
	EndToEndID     string     `xml:"PmtId>EndToEndId"`
	TxID           string     `xml:"PmtId>TxId"`
	SettlementAmt  amount     `xml:"IntrBkSttlmAmt"`
	SettlementDate string     `xml:"IntrBkSttlmDt"`
	ChargeBearer   string     `xml:"ChrgBr"`
	DebtorName     string     `xml:"Dbtr>Nm"`
	DebtorAccount  accountID  `xml:"DbtrAcct"`
	DebtorAgent    finInstnID `xml:"DbtrAgt"`
	CreditorAgent  finInstnID `xml:"CdtrAgt"`
	CreditorName   string     `xml:"Cdtr>Nm"`
	CreditorAcct   accountID  `xml:"CdtrAcct"`
	Remittance     string     `xml:"RmtInf>Ustrd,omitempty"`
}

// pacs.002

type statusReportDocument struct {
	XMLName xml.Name           `xml:"Document"`
	Xmlns   string             `xml:"xmlns,attr"`
	Body    statusReportHeader `xml:"FIToFIPmtStsRpt"`
}

type statusReportHeader struct {
	GroupHeader groupHeader       `xml:"GrpHdr"`
	Original    originalGroupInfo `xml:"OrgnlGrpInfAndSts"`
	Tx          txInfAndStatus    `xml:"TxInfAndSts"`
}

type originalGroupInfo struct {
	OriginalMsgID   string `xml:"OrgnlMsgId"`
	OriginalMsgName string `xml:"OrgnlMsgNmId"`
	GroupStatus     string `xml:"GrpSts,omitempty"`
}

type txInfAndStatus struct {
	StatusID           string `xml:"StsId"`
	OriginalEndToEndID string `xml:"OrgnlEndToEndId"`
	Status             string `xml:"TxSts"`
	ReasonCode         string `xml:"StsRsnInf>Rsn>Cd,omitempty"`
}

// camt.054

type notificationDocument struct {
	XMLName xml.Name           `xml:"Document"`
	Xmlns   string             `xml:"xmlns,attr"`
	Body    notificationHeader `xml:"BkToCstmrDbtCdtNtfctn"`
}

type notificationHeader struct {
	GroupHeader  groupHeader  `xml:"GrpHdr"`
	Notification notification `xml:"Ntfctn"`
}

type notification struct {
	ID        string    `xml:"Id"`
	CreatedAt string    `xml:"CreDtTm"`
	Account   accountID `xml:"Acct"`
	Entry     entry     `xml:"Ntry"`
}

type entry struct {
	Amount      amount `xml:"Amt"`
	CreditDebit string `xml:"CdtDbtInd"`
	Status      string `xml:"Sts>Cd"`
	BookingDate string `xml:"BookgDt>Dt"`
	EndToEndID  string `xml:"NtryDtls>TxDtls>Refs>EndToEndId"`
}
